package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store"
	"github.com/xmtea/whatsapp-bot/internal/whatsapp"
)

type mockSender struct {
	sent []whatsapp.Message
	err  error
}

func (m *mockSender) Send(_ context.Context, msg whatsapp.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func encodeEvent(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	value, err := json.Marshal(store.Event{
		ID:            "evt-1",
		AggregateID:   "order-SIP-000001",
		AggregateType: order.AggregateType,
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now(),
		Version:       2,
	})
	require.NoError(t, err)
	return value
}

func statusChanged(to order.Status, note string) order.OrderStatusChanged {
	return order.OrderStatusChanged{
		OrderID: "SIP-000001",
		UserID:  "905551112233",
		From:    order.StatusReceived,
		To:      to,
		Note:    note,
	}
}

func TestHandleEvent_StatusChangedNotifiesCustomer(t *testing.T) {
	sender := &mockSender{}
	h := NewHandler(sender)

	err := h.HandleEvent(context.Background(), nil, encodeEvent(t, order.EventOrderStatusChanged, statusChanged(order.StatusOnTheWay, "10 dk içinde kapınızda")))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "905551112233", msg.To)
	assert.Contains(t, msg.Text.Body, "yola çıktı")
	assert.Contains(t, msg.Text.Body, "SIP-000001")
	assert.Contains(t, msg.Text.Body, "10 dk içinde kapınızda")
}

func TestHandleEvent_IgnoredEvents(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{"not json", []byte("{")},
		{"order placed", encodeEvent(t, order.EventOrderPlaced, order.OrderPlaced{OrderID: "SIP-000001"})},
		{"cart event", encodeEvent(t, "ItemAddedToCart", map[string]string{"user_id": "x"})},
		{"no customer", encodeEvent(t, order.EventOrderStatusChanged, order.OrderStatusChanged{OrderID: "SIP-1", To: order.StatusPreparing})},
		{"same status", encodeEvent(t, order.EventOrderStatusChanged, order.OrderStatusChanged{OrderID: "SIP-1", UserID: "1", From: order.StatusPreparing, To: order.StatusPreparing})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			h := NewHandler(sender)

			assert.NoError(t, h.HandleEvent(context.Background(), nil, tt.value))
			assert.Empty(t, sender.sent)
		})
	}
}

func TestHandleEvent_SendFailure(t *testing.T) {
	sender := &mockSender{err: errors.New("graph api down")}
	h := NewHandler(sender)

	err := h.HandleEvent(context.Background(), nil, encodeEvent(t, order.EventOrderStatusChanged, statusChanged(order.StatusDelivered, "")))

	assert.ErrorContains(t, err, "graph api down")
}

func TestStatusMessage(t *testing.T) {
	for _, s := range order.Statuses() {
		msg := StatusMessage(statusChanged(s, ""))
		assert.Contains(t, msg, "SIP-000001", s)
		assert.NotContains(t, msg, "📝", s)
	}
}
