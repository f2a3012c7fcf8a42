// Package notification turns order events from the bus into customer chat
// messages.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/whatsapp"
)

// Handler processes events for sending notifications
type Handler struct {
	sender whatsapp.Sender
	log    *slog.Logger
}

func NewHandler(sender whatsapp.Sender) *Handler {
	return &Handler{sender: sender, log: logging.New("notifier")}
}

// HandleEvent processes one event from Kafka. Malformed events are logged
// and dropped; only send failures are returned.
func (h *Handler) HandleEvent(ctx context.Context, _, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.Warn("failed to unmarshal event", "error", err)
		return nil
	}

	switch event.EventType {
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, event)
	case order.EventOrderPlaced:
		h.log.Info("order placed", "aggregate_id", event.AggregateID)
	}
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, event store.Event) error {
	var e order.OrderStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Warn("failed to unmarshal OrderStatusChanged", "event_id", event.ID, "error", err)
		return nil
	}
	if e.UserID == "" {
		h.log.Warn("status change without customer", "order_id", e.OrderID)
		return nil
	}
	if e.From == e.To {
		return nil
	}

	if err := h.sender.Send(ctx, whatsapp.NewText(e.UserID, StatusMessage(e))); err != nil {
		return fmt.Errorf("notify %s about %s: %w", e.UserID, e.OrderID, err)
	}
	h.log.Info("customer notified", "order_id", e.OrderID, "status", e.To)
	return nil
}

var statusHeadlines = map[order.Status]string{
	order.StatusReceived:  "📥 Siparişiniz alındı.",
	order.StatusPreparing: "👨‍🍳 Siparişiniz hazırlanıyor!",
	order.StatusOnTheWay:  "🛵 Siparişiniz yola çıktı!",
	order.StatusDelivered: "✅ Siparişiniz teslim edildi. Afiyet olsun!",
	order.StatusCancelled: "❌ Siparişiniz iptal edildi.",
}

// StatusMessage renders the customer text for a status change
func StatusMessage(e order.OrderStatusChanged) string {
	headline, ok := statusHeadlines[e.To]
	if !ok {
		headline = "ℹ️ Sipariş durumu: " + e.To.Label()
	}
	msg := fmt.Sprintf("%s\n\n📋 Sipariş No: *%s*", headline, e.OrderID)
	if e.Note != "" {
		msg += "\n📝 " + e.Note
	}
	return msg
}
