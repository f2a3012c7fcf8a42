// Package metrics holds the Prometheus collectors shared by the bot's components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	Directives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_directives_total",
			Help: "Reply directives produced by the intent router",
		},
		[]string{"kind"},
	)

	OrdersFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_orders_finalized_total",
			Help: "Orders confirmed by customers",
		},
	)

	CatalogFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_catalog_fallbacks_total",
			Help: "Menu reads served from stale cache or the built-in menu",
		},
		[]string{"reason"},
	)

	WebhookDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_webhook_duplicates_total",
			Help: "Inbound messages dropped because their message id was already handled",
		},
	)

	OutboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_outbound_messages_total",
			Help: "Messages sent to the WhatsApp Cloud API",
		},
		[]string{"result"},
	)
)
