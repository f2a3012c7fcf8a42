package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// OrderRegister is the part of *order.Register the admin surface reads and
// writes through
type OrderRegister interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, f order.Filter) ([]*order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status, note string) (*order.Order, error)
	Stats(ctx context.Context, f order.StatsFilter) (*order.Stats, error)
}

type AdminHandlers struct {
	orders OrderRegister
}

func NewAdminHandlers(orders OrderRegister) *AdminHandlers {
	return &AdminHandlers{orders: orders}
}

type orderListResponse struct {
	Orders []*order.Order `json:"orders"`
	Count  int            `json:"count"`
}

// GET /admin/orders?business_id=&status=
func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.Filter{BusinessID: q.Get("business_id")}
	if raw := q.Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderListResponse{Orders: orders, Count: len(orders)})
}

// GET /admin/orders/{id}
func (h *AdminHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// PATCH /admin/orders/{id}/status
func (h *AdminHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status), req.Note)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// GET /admin/stats?business_id=&period=
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := order.ParsePeriod(q.Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.orders.Stats(r.Context(), order.StatsFilter{
		BusinessID: q.Get("business_id"),
		Period:     period,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AdminHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidStatus), errors.Is(err, order.ErrInvalidPeriod):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromCtx(r.Context()).Error("admin request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
