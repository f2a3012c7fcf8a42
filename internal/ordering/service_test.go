package ordering

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
	"github.com/xmtea/whatsapp-bot/internal/domain/conversation"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kv"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store/mocks"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
	"github.com/xmtea/whatsapp-bot/internal/session"
)

const testUser = "905551112233"

var orderIDPattern = regexp.MustCompile(`^SIP-\d{6}$`)

type testEnv struct {
	svc    *Service
	repo   order.Repository
	mem    *order.MemoryRepository
	events *mocks.MockEventStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, catalog.Fallback(), order.NewMemoryRepository())
}

func newTestEnvWith(t *testing.T, menu *catalog.Menu, repo order.Repository) *testEnv {
	t.Helper()
	es := mocks.NewMockEventStore()
	register := order.NewRegister(repo, es, order.NewIDGenerator(order.DefaultIDPrefix, time.Now))
	svc := NewService(
		session.NewStore(kv.NewMemoryStore()),
		catalog.NewStaticProvider(menu),
		register,
		pricing.NewEngine(pricing.DefaultDeliveryFee),
		es,
		Options{},
	)
	env := &testEnv{svc: svc, repo: repo, events: es}
	if mem, ok := repo.(*order.MemoryRepository); ok {
		env.mem = mem
	}
	return env
}

func (e *testEnv) send(t *testing.T, ev Event) Directive {
	t.Helper()
	return e.svc.HandleEvent(context.Background(), testUser, ev)
}

func (e *testEnv) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := e.svc.sessions.Get(context.Background(), testUser)
	require.NoError(t, err)
	return sess
}

// walkToConfirmation drives a fresh user up to the confirmation prompt
func (e *testEnv) walkToConfirmation(t *testing.T) Directive {
	t.Helper()
	e.send(t, Selection("business_lezzet"))
	e.send(t, Selection("prod_adana"))
	e.send(t, Selection("prod_adana"))
	e.send(t, Selection(ControlCheckout))
	e.send(t, Text("Test Cad. No:1"))
	d := e.send(t, Selection("payment_cash"))
	require.Equal(t, KindOrderSummary, d.Kind)
	return d
}

// ============================================
// Scenario Tests
// ============================================

func TestHandleEvent_FullOrderFlow(t *testing.T) {
	env := newTestEnv(t)

	d := env.send(t, Text("merhaba"))
	assert.Equal(t, KindMainMenu, d.Kind)

	d = env.send(t, Selection(ControlNewOrder))
	assert.Equal(t, KindRestaurantList, d.Kind)
	assert.Len(t, d.Businesses, 3)

	d = env.send(t, Selection("business_lezzet"))
	require.Equal(t, KindCategoryList, d.Kind)
	assert.Equal(t, "business_lezzet", d.Business.ID)
	assert.Equal(t, conversation.PhaseBrowsing, env.session(t).State.Phase)

	d = env.send(t, Selection("cat_kebap"))
	require.Equal(t, KindProductList, d.Kind)
	assert.Equal(t, "cat_kebap", d.Category.ID)
	assert.NotEmpty(t, d.Products)

	env.send(t, Selection("prod_adana"))
	d = env.send(t, Selection("prod_adana"))
	require.Equal(t, KindCartView, d.Kind)
	require.Len(t, d.Summary.Lines, 1)
	assert.Equal(t, 2, d.Summary.Lines[0].Quantity)
	assert.Equal(t, 30000, d.Total)

	d = env.send(t, Selection(ControlCheckout))
	assert.Equal(t, KindAskAddress, d.Kind)
	assert.Equal(t, conversation.PhaseAwaitingAddress, env.session(t).State.Phase)

	d = env.send(t, Text("  Test Cad. No:1 "))
	require.Equal(t, KindPaymentMethods, d.Kind)
	assert.Equal(t, 30000, d.Total)
	assert.Equal(t, "Test Cad. No:1", env.session(t).State.PendingAddress)

	d = env.send(t, Selection("payment_cash"))
	require.Equal(t, KindOrderSummary, d.Kind)
	assert.Regexp(t, orderIDPattern, d.OrderID)
	require.NotNil(t, d.Pending)
	assert.Equal(t, order.PaymentCash, d.Pending.PaymentMethod)
	assert.Equal(t, 30000, d.Pending.Total)
	assert.Equal(t, pricing.DefaultDeliveryFee, d.Pending.DeliveryFee)
	assert.Equal(t, d.Pending.CreatedAt.Truncate(order.TimestampPrecision), d.Pending.CreatedAt, "draft time kept at storage precision")
	assert.Zero(t, env.mem.Len(), "nothing is registered before confirmation")

	pendingID := d.OrderID
	d = env.send(t, Selection(ControlConfirm))
	require.Equal(t, KindOrderConfirmed, d.Kind)
	assert.Equal(t, pendingID, d.OrderID)
	assert.Equal(t, DefaultETAMinutes, d.ETAMinutes)
	require.NotNil(t, d.Order)
	assert.Equal(t, order.StatusReceived, d.Order.Status)
	assert.Equal(t, "Test Cad. No:1", d.Order.Address)
	assert.Equal(t, "business_lezzet", d.Order.BusinessID)

	sess := env.session(t)
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, conversation.PhaseIdle, sess.State.Phase)
	assert.Empty(t, sess.State.SelectedBusinessID)
	assert.Nil(t, sess.Pending)
	assert.Equal(t, 1, env.mem.Len())

	d = env.send(t, Selection(ControlMyOrders))
	require.Equal(t, KindOrderHistory, d.Kind)
	require.Len(t, d.Orders, 1)
	assert.Equal(t, pendingID, d.Orders[0].ID)

	d = env.send(t, Selection(ControlTrackOrder))
	require.Equal(t, KindOrderTracking, d.Kind)
	assert.Equal(t, pendingID, d.OrderID)
}

func TestHandleEvent_RepeatedConfirmRegistersOnce(t *testing.T) {
	env := newTestEnv(t)
	env.walkToConfirmation(t)

	first := env.send(t, Selection(ControlConfirm))
	second := env.send(t, Selection(ControlConfirm))

	assert.Equal(t, KindOrderConfirmed, first.Kind)
	assert.Equal(t, KindMainMenu, second.Kind)
	assert.Equal(t, 1, env.mem.Len())
}

func TestHandleEvent_CancelNeverRegisters(t *testing.T) {
	env := newTestEnv(t)
	env.walkToConfirmation(t)

	d := env.send(t, Selection(ControlCancel))

	assert.Equal(t, KindOrderCancelled, d.Kind)
	assert.Zero(t, env.mem.Len())
	sess := env.session(t)
	assert.True(t, sess.Cart.IsEmpty())
	assert.Nil(t, sess.Pending)
	assert.Equal(t, conversation.PhaseIdle, sess.State.Phase)
	assert.Len(t, env.events.CallsOf(cart.EventCartCleared), 1)
}

func TestHandleEvent_ClearCart(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, Selection("prod_cola"))

	d := env.send(t, Selection(ControlClearCart))

	assert.Equal(t, KindCartCleared, d.Kind)
	assert.True(t, env.session(t).Cart.IsEmpty())

	d = env.send(t, Selection(ControlViewCart))
	assert.Equal(t, KindCartEmpty, d.Kind)
}

func TestHandleEvent_RecordsCartEvents(t *testing.T) {
	env := newTestEnv(t)

	env.send(t, Selection("prod_adana"))
	env.send(t, Selection("prod_adana"))

	calls := env.events.CallsOf(cart.EventItemAdded)
	require.Len(t, calls, 2)
	added := calls[1].Data.(cart.ItemAddedToCart)
	assert.Equal(t, 2, added.Quantity)
	assert.Equal(t, cart.AggregateID(testUser), calls[1].AggregateID)
}

// ============================================
// Guard Tests
// ============================================

func TestHandleEvent_CheckoutWithEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	d := env.send(t, Selection(ControlCheckout))

	assert.Equal(t, KindCartEmpty, d.Kind)
	assert.Equal(t, conversation.PhaseIdle, env.session(t).State.Phase)
}

func TestHandleEvent_PaymentOutsideCheckout(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, Selection("prod_adana"))

	d := env.send(t, Selection("payment_card"))

	assert.Equal(t, KindMainMenu, d.Kind)
	assert.Nil(t, env.session(t).Pending)
}

func TestHandleEvent_ConfirmWithoutPending(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, Selection("prod_adana"))

	d := env.send(t, Selection(ControlConfirm))

	assert.Equal(t, KindMainMenu, d.Kind)
	assert.Zero(t, env.mem.Len())
	assert.False(t, env.session(t).Cart.IsEmpty(), "rejected confirm keeps the cart")
}

func TestHandleEvent_EmptyAddressAsksAgain(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, Selection("prod_adana"))
	env.send(t, Selection(ControlCheckout))

	d := env.send(t, Text("   "))

	assert.Equal(t, KindAskAddress, d.Kind)
	assert.Equal(t, conversation.PhaseAwaitingAddress, env.session(t).State.Phase)
}

func TestHandleEvent_AddDuringConfirmationRejected(t *testing.T) {
	env := newTestEnv(t)
	env.walkToConfirmation(t)

	d := env.send(t, Selection("prod_cola"))

	assert.Equal(t, KindMainMenu, d.Kind)
	sess := env.session(t)
	require.Len(t, sess.Cart.Items, 1, "cart is frozen once the order is summarized")
	assert.Equal(t, conversation.PhaseAwaitingConfirmation, sess.State.Phase)
}

func TestHandleEvent_LegacyMealCardButton(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, Selection("prod_adana"))
	env.send(t, Selection(ControlCheckout))
	env.send(t, Text("Adres"))

	d := env.send(t, Selection("pay_meal"))

	require.Equal(t, KindOrderSummary, d.Kind)
	assert.Equal(t, order.PaymentMealCard, d.Pending.PaymentMethod)
}

func TestHandleEvent_UnknownSelections(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want Kind
	}{
		{"unknown control", Selection("action_unknown"), KindMainMenu},
		{"empty id", Selection("  "), KindMainMenu},
		{"unknown product", Selection("prod_missing"), KindProductNotFound},
		{"unknown business", Selection("business_missing"), KindNotFound},
		{"unknown category", Selection("cat_missing"), KindNotFound},
		{"bare prefix", Selection("prod_"), KindMainMenu},
		{"unmatched text", Text("qwerty"), KindMainMenu},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			d := env.send(t, tt.ev)

			assert.Equal(t, tt.want, d.Kind)
			assert.True(t, env.session(t).Cart.IsEmpty())
		})
	}
}

func TestHandleEvent_BareBusinessID(t *testing.T) {
	menu := &catalog.Menu{
		Businesses: []catalog.Business{{ID: "lezzet-42", Name: "Lezzet"}},
		Categories: []catalog.Category{{ID: "cat_kebap", Title: "Kebaplar"}},
		Products:   map[string][]catalog.Product{},
	}
	env := newTestEnvWith(t, menu, order.NewMemoryRepository())

	d := env.send(t, Selection("lezzet-42"))

	require.Equal(t, KindCategoryList, d.Kind)
	assert.Equal(t, "lezzet-42", env.session(t).State.SelectedBusinessID)
}

func TestHandleEvent_ContinueShopping(t *testing.T) {
	env := newTestEnv(t)

	d := env.send(t, Selection(ControlContinue))
	assert.Equal(t, KindMainMenu, d.Kind)

	env.send(t, Selection("business_burger"))
	d = env.send(t, Selection(ControlContinue))
	require.Equal(t, KindCategoryList, d.Kind)
	assert.Equal(t, "business_burger", d.Business.ID)
}

// failingRepository accepts lookups but refuses to store orders
type failingRepository struct {
	*order.MemoryRepository
}

func (failingRepository) Insert(context.Context, *order.Order) error {
	return errors.New("disk full")
}

func TestHandleEvent_FinalizeFailureKeepsSession(t *testing.T) {
	repo := &failingRepository{order.NewMemoryRepository()}
	env := newTestEnvWith(t, catalog.Fallback(), repo)
	env.walkToConfirmation(t)

	d := env.send(t, Selection(ControlConfirm))

	assert.Equal(t, KindError, d.Kind)
	sess := env.session(t)
	assert.NotNil(t, sess.Pending)
	assert.False(t, sess.Cart.IsEmpty())
	assert.Equal(t, conversation.PhaseAwaitingConfirmation, sess.State.Phase)
}

// ============================================
// Keyword Tests
// ============================================

func TestMatchKeyword(t *testing.T) {
	tests := []struct {
		text   string
		want   Kind
		wantOK bool
	}{
		{"Merhaba", KindMainMenu, true},
		{"hi", KindMainMenu, true},
		{"Hi there", KindMainMenu, true},
		{"this", "", false},
		{"MENÜ", KindMainMenu, true},
		{"SİPARİŞ vermek istiyorum", KindRestaurantList, true},
		{"kampanyalar neler", KindCampaignList, true},
		{"popüler", KindFeaturedList, true},
		{"restoranlar", KindRestaurantList, true},
		{"sepetim", KindCartView, true},
		{"yardım", KindHelp, true},
		{"", "", false},
		{"   ", "", false},
		{"asdf", "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.text), func(t *testing.T) {
			got, ok := MatchKeyword(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleEvent_KeywordIntents(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, KindCampaignList, env.send(t, Text("indirim var mı")).Kind)
	assert.Equal(t, KindFeaturedList, env.send(t, Text("önerilen")).Kind)
	assert.Equal(t, KindCartEmpty, env.send(t, Text("sepet")).Kind)
	assert.Equal(t, KindHelp, env.send(t, Text("help")).Kind)
}

// ============================================
// Concurrency Tests
// ============================================

func TestHandleEvent_ConcurrentEventsForOneUser(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.send(t, Selection("prod_cola"))
		}()
	}
	wg.Wait()

	sess := env.session(t)
	require.Len(t, sess.Cart.Items, 1)
	assert.Equal(t, 50, sess.Cart.Items[0].Quantity)
}
