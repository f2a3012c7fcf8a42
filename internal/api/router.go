// Package api exposes the WhatsApp webhook and the admin order endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xmtea/whatsapp-bot/internal/api/middleware"
	"github.com/xmtea/whatsapp-bot/internal/infrastructure/kv"
	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/whatsapp"
)

// Deps is everything the router needs. Hub may be nil, which disables the
// live order feed. Seen may be nil, which disables message id dedupe.
type Deps struct {
	Bot         EventHandler
	Orders      OrderRegister
	Sender      whatsapp.Sender
	Hub         *Hub
	VerifyToken string
	Seen        kv.Store
	SeenTTL     time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logging.New("http")))
	r.Use(middleware.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	webhook := NewWebhookHandlers(d.Bot, d.Sender, d.VerifyToken)
	if d.Seen != nil {
		webhook.WithDedupe(d.Seen, d.SeenTTL)
	}
	r.Get("/webhook", webhook.Verify)
	r.Post("/webhook", webhook.Receive)

	admin := NewAdminHandlers(d.Orders)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", admin.ListOrders)
		if d.Hub != nil {
			r.Get("/orders/stream", d.Hub.ServeWS)
		}
		r.Get("/orders/{id}", admin.GetOrder)
		r.Patch("/orders/{id}/status", admin.UpdateStatus)
		r.Get("/stats", admin.Stats)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
