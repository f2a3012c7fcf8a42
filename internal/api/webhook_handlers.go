package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kv"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/metrics"
	"github.com/xmtea/whatsapp-bot/internal/ordering"
	"github.com/xmtea/whatsapp-bot/internal/whatsapp"
)

// maxWebhookBody caps the payload read from the Cloud API
const maxWebhookBody = 1 << 20

// EventHandler turns one user event into a reply directive.
// *ordering.Service implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, userID string, ev ordering.Event) ordering.Directive
}

// DefaultSeenTTL is how long a handled message id is remembered
const DefaultSeenTTL = 24 * time.Hour

type WebhookHandlers struct {
	bot         EventHandler
	sender      whatsapp.Sender
	verifyToken string
	seen        kv.Store
	seenTTL     time.Duration
	log         *slog.Logger
}

func NewWebhookHandlers(bot EventHandler, sender whatsapp.Sender, verifyToken string) *WebhookHandlers {
	return &WebhookHandlers{
		bot:         bot,
		sender:      sender,
		verifyToken: verifyToken,
		log:         logging.New("webhook"),
	}
}

// WithDedupe makes Receive skip messages whose id is already in seen.
// The platform redelivers a message when its 200 is late or lost.
func (h *WebhookHandlers) WithDedupe(seen kv.Store, ttl time.Duration) *WebhookHandlers {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	h.seen = seen
	h.seenTTL = ttl
	return h
}

// Verify answers the subscription handshake: GET /webhook?hub.mode=subscribe&hub.verify_token=..&hub.challenge=..
func (h *WebhookHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.log.Warn("webhook verification rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h.log.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// Receive handles POST /webhook. Every message is routed and answered before
// the 200 goes out; delivery failures are logged, not surfaced to the platform.
func (h *WebhookHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	inbound, err := whatsapp.ParseWebhook(body)
	switch {
	case errors.Is(err, whatsapp.ErrUnsupportedObject):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		h.log.Warn("malformed webhook payload", "error", err)
		respondError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	ctx := r.Context()
	log := logging.FromCtx(ctx)
	for _, in := range inbound {
		if h.duplicate(ctx, log, in) {
			continue
		}
		d := h.bot.HandleEvent(ctx, in.From, in.Event)
		if err := whatsapp.Deliver(ctx, h.sender, whatsapp.Render(in.From, d)); err != nil {
			log.Warn("failed to deliver reply",
				"user_id", in.From,
				"message_id", in.MessageID,
				"directive", d.Kind,
				"error", err,
			)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// duplicate claims in.MessageID and reports whether it was already claimed.
// A store failure lets the message through.
func (h *WebhookHandlers) duplicate(ctx context.Context, log *slog.Logger, in whatsapp.Inbound) bool {
	if h.seen == nil || in.MessageID == "" {
		return false
	}
	first, err := h.seen.SetNX(ctx, "wamid:"+in.MessageID, []byte(in.From), h.seenTTL)
	if err != nil {
		log.Warn("message dedupe unavailable", "message_id", in.MessageID, "error", err)
		return false
	}
	if !first {
		log.Info("duplicate message skipped", "user_id", in.From, "message_id", in.MessageID)
		metrics.WebhookDuplicates.Inc()
		return true
	}
	return false
}
