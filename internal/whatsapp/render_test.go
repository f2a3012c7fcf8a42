package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/ordering"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
)

const recipient = "905551112233"

func rowIDs(m Message) []string {
	var ids []string
	for _, s := range m.Interactive.Action.Sections {
		for _, r := range s.Rows {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func buttonIDs(m Message) []string {
	var ids []string
	for _, b := range m.Interactive.Action.Buttons {
		ids = append(ids, b.Reply.ID)
	}
	return ids
}

func TestRender_MainMenu(t *testing.T) {
	msgs := Render(recipient, ordering.Directive{Kind: ordering.KindMainMenu})

	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "interactive", m.Type)
	assert.Equal(t, "list", m.Interactive.Type)
	assert.Equal(t, []string{
		"action_new_order", "action_my_orders", "action_track_order",
		"menu_featured", "menu_campaign", "menu_all",
		"action_help", "action_contact",
	}, rowIDs(m))
}

func TestRender_CartView(t *testing.T) {
	c := cart.New(recipient)
	c.AddItem("prod_adana", "Adana Kebap", 15000)
	c.AddItem("prod_adana", "Adana Kebap", 15000)
	summary := pricing.NewEngine(pricing.DefaultDeliveryFee).Summarize(c.Items)

	msgs := Render(recipient, ordering.Directive{Kind: ordering.KindCartView, Summary: summary, Total: summary.Subtotal})

	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "button", m.Interactive.Type)
	assert.Equal(t, []string{"cart_checkout", "cart_menu", "cart_clear"}, buttonIDs(m))
	assert.Contains(t, m.Interactive.Body.Text, "2x 150₺ = 300₺")
	assert.Contains(t, m.Interactive.Body.Text, "GENEL TOPLAM: 320₺")
	assert.Equal(t, "1 ürün", m.Interactive.Footer.Text)
}

func TestRender_CategoryListGroupsBySection(t *testing.T) {
	d := ordering.Directive{
		Kind:     ordering.KindCategoryList,
		Business: &catalog.Business{ID: "business_lezzet", Name: "Lezzet"},
		Categories: []catalog.Category{
			{ID: "cat_kebap", Title: "Kebaplar", Section: "Ana Yemekler"},
			{ID: "cat_drink", Title: "İçecekler", Section: "İçecekler"},
			{ID: "cat_pide", Title: "Pideler", Section: "Ana Yemekler"},
		},
	}

	m := Render(recipient, d)[0]

	sections := m.Interactive.Action.Sections
	require.Len(t, sections, 2)
	assert.Equal(t, "Ana Yemekler", sections[0].Title)
	assert.Len(t, sections[0].Rows, 2)
	assert.Equal(t, "📋 Lezzet Menüsü", m.Interactive.Header.Text)
}

func TestRender_ProductListRespectsLimits(t *testing.T) {
	var products []catalog.Product
	for i := 0; i < 14; i++ {
		products = append(products, catalog.Product{
			ID:    "prod_" + strings.Repeat("x", i+1),
			Name:  "Çok uzun bir ürün adı olan lezzetli kebap",
			Price: 15050,
		})
	}

	m := Render(recipient, ordering.Directive{Kind: ordering.KindProductList, Products: products, Category: &catalog.Category{Title: "Kebaplar"}})[0]

	rows := m.Interactive.Action.Sections[0].Rows
	assert.Len(t, rows, maxListRows)
	for _, r := range rows {
		assert.LessOrEqual(t, utf8.RuneCountInString(r.Title), maxRowTitle)
		assert.True(t, utf8.ValidString(r.Title))
	}
	assert.Equal(t, "150,50₺", rows[0].Description)
	assert.Equal(t, "🍽️ KEBAPLAR", m.Interactive.Header.Text)
}

func TestRender_OrderSummary(t *testing.T) {
	summary := pricing.Summary{Subtotal: 30000, DeliveryFee: 2000, GrandTotal: 32000}
	d := ordering.Directive{
		Kind:    ordering.KindOrderSummary,
		Summary: summary,
		OrderID: "SIP-123456",
		Pending: &order.Pending{Address: "Test Cad. No:1", PaymentMethod: order.PaymentCash},
	}

	m := Render(recipient, d)[0]

	assert.Equal(t, []string{"order_confirm", "order_cancel"}, buttonIDs(m))
	body := m.Interactive.Body.Text
	assert.Contains(t, body, "SIP-123456")
	assert.Contains(t, body, "Test Cad. No:1")
	assert.Contains(t, body, "Genel Toplam: 320₺")
}

func TestRender_OrderConfirmed(t *testing.T) {
	o := &order.Order{ID: "SIP-123456", Total: 30000, DeliveryFee: 2000, Address: "Adres", PaymentMethod: order.PaymentCard}

	msgs := Render(recipient, ordering.Directive{Kind: ordering.KindOrderConfirmed, Order: o, OrderID: o.ID, ETAMinutes: 45})

	require.Len(t, msgs, 1)
	body := msgs[0].Text.Body
	assert.Contains(t, body, "SİPARİŞİNİZ ALINDI")
	assert.Contains(t, body, "320₺")
	assert.Contains(t, body, "30-45 dk")
}

func TestRender_FollowUpMenus(t *testing.T) {
	tests := []struct {
		kind ordering.Kind
		n    int
	}{
		{ordering.KindCartCleared, 2},
		{ordering.KindOrderCancelled, 2},
		{ordering.KindNotFound, 2},
		{ordering.KindCartEmpty, 1},
		{ordering.KindHelp, 1},
		{ordering.KindError, 1},
		{ordering.KindOrderHistory, 1},
		{ordering.KindOrderTracking, 1},
		{"unknown", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Len(t, Render(recipient, ordering.Directive{Kind: tt.kind}), tt.n)
		})
	}
}

func TestRender_OrderHistory(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	orders := []*order.Order{
		{ID: "SIP-000002", Total: 10000, DeliveryFee: 2000, Status: order.StatusPreparing, ConfirmedAt: at},
	}

	body := Render(recipient, ordering.Directive{Kind: ordering.KindOrderHistory, Orders: orders})[0].Text.Body

	assert.Contains(t, body, "SIP-000002")
	assert.Contains(t, body, "10.03.2026 12:30")
	assert.Contains(t, body, "120₺")
	assert.Contains(t, body, order.StatusPreparing.Label())
}

func TestEtaWindow(t *testing.T) {
	assert.Equal(t, "30-45 dk", etaWindow(45))
	assert.Equal(t, "5-10 dk", etaWindow(10))
	assert.Equal(t, "5 dk", etaWindow(5))
}

// ============================================
// Client Tests
// ============================================

func TestClient_Send(t *testing.T) {
	var got Message
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.x"}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", PhoneNumberID: "123", AccessToken: "secret"}, nil)

	err := c.Send(context.Background(), NewText(recipient, "merhaba"))

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "/123/messages", path)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "merhaba", got.Text.Body)
}

func TestClient_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, PhoneNumberID: "123"}, nil)

	err := c.Send(context.Background(), NewText(recipient, "x"))

	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

type recordingSender struct {
	sent   []Message
	failAt int
}

func (r *recordingSender) Send(_ context.Context, m Message) error {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return errors.New("boom")
	}
	r.sent = append(r.sent, m)
	return nil
}

func TestDeliver_StopsAtFirstFailure(t *testing.T) {
	s := &recordingSender{failAt: 1}
	msgs := Render(recipient, ordering.Directive{Kind: ordering.KindOrderCancelled})

	err := Deliver(context.Background(), s, msgs)

	assert.Error(t, err)
	assert.Empty(t, s.sent)

	ok := &recordingSender{}
	require.NoError(t, Deliver(context.Background(), ok, msgs))
	assert.Len(t, ok.sent, 2)
}
