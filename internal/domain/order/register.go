package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/infrastructure/store"
	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// maxIDAttempts bounds how many fresh ids are drawn before giving up
const maxIDAttempts = 8

// Register is the append-only book of finalized orders
type Register struct {
	repo       Repository
	eventStore store.EventStoreInterface
	ids        *IDGenerator
	now        func() time.Time
	log        *slog.Logger

	// serializes read-modify-write of order status
	statusMu sync.Mutex
}

func NewRegister(repo Repository, es store.EventStoreInterface, ids *IDGenerator) *Register {
	if ids == nil {
		ids = NewIDGenerator(DefaultIDPrefix, nil)
	}
	return &Register{
		repo:       repo,
		eventStore: es,
		ids:        ids,
		now:        time.Now,
		log:        logging.New("order"),
	}
}

// NewOrderID draws an id that no finalized order holds yet
func (r *Register) NewOrderID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.ids.Next()
		_, err := r.repo.Get(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check order id: %w", err)
		}
	}
	return "", fmt.Errorf("%w: no free id after %d attempts", ErrDuplicateOrderID, maxIDAttempts)
}

// Append stores o as-is. Ids are never overwritten.
func (r *Register) Append(ctx context.Context, o *Order) error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if err := r.repo.Insert(ctx, o); err != nil {
		return err
	}
	r.record(ctx, o.ID, EventOrderPlaced, placedEvent(o))
	return nil
}

// Finalize turns a confirmed draft into a Received order. Finalizing the same
// draft twice returns the stored order without appending again. If another
// order took the draft's id in the meantime, a fresh id is issued.
func (r *Register) Finalize(ctx context.Context, p Pending) (*Order, error) {
	o := FromPending(p, r.now())

	for attempt := 0; ; attempt++ {
		err := r.Append(ctx, o)
		if err == nil {
			r.log.Info("order finalized", "order_id", o.ID, "user_id", o.UserID, "total", o.Total)
			return o, nil
		}
		if !errors.Is(err, ErrDuplicateOrderID) {
			return nil, err
		}

		existing, getErr := r.repo.Get(ctx, o.ID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load conflicting order: %w", getErr)
		}
		if sameDraft(existing, p) {
			r.log.Warn("order already finalized", "order_id", existing.ID)
			return existing, nil
		}
		if attempt >= maxIDAttempts {
			return nil, err
		}

		id, idErr := r.NewOrderID(ctx)
		if idErr != nil {
			return nil, idErr
		}
		r.log.Warn("order id collision, reissuing", "old_id", o.ID, "new_id", id)
		o.ID = id
	}
}

// sameDraft compares at repository precision; a stored order may have lost
// the draft's sub-microsecond digits
func sameDraft(o *Order, p Pending) bool {
	return o.UserID == p.UserID &&
		o.CreatedAt.Truncate(TimestampPrecision).Equal(p.CreatedAt.Truncate(TimestampPrecision))
}

func (r *Register) Get(ctx context.Context, id string) (*Order, error) {
	return r.repo.Get(ctx, id)
}

// UpdateStatus sets a new status and appends to the history. Unknown ids and
// statuses outside the enum leave the register unchanged.
func (r *Register) UpdateStatus(ctx context.Context, id string, status Status, note string) (*Order, error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	o, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.SetStatus(status, note, r.now()); err != nil {
		return nil, err
	}
	if err := r.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	r.record(ctx, o.ID, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:   o.ID,
		UserID:    o.UserID,
		From:      from,
		To:        status,
		Note:      note,
		ChangedAt: o.UpdatedAt,
	})
	r.log.Info("order status updated", "order_id", o.ID, "from", from, "to", status)
	return o, nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	BusinessID string
	Status     Status
	UserID     string
	Limit      int
}

func (f Filter) match(o *Order) bool {
	if f.BusinessID != "" && o.BusinessID != f.BusinessID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	return true
}

// List returns matching orders newest first
func (r *Register) List(ctx context.Context, f Filter) ([]*Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}

	all, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Order, 0, len(all))
	for _, o := range all {
		if f.match(o) {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Register) ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	return r.List(ctx, Filter{UserID: userID, Limit: limit})
}

func sortNewestFirst(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.ConfirmedAt.Equal(b.ConfirmedAt) {
			return a.ConfirmedAt.After(b.ConfirmedAt)
		}
		return a.ID > b.ID
	})
}

// record writes a domain event. The order is already persisted at this point
// so a failed append is logged and not returned.
func (r *Register) record(ctx context.Context, orderID, eventType string, data any) {
	if r.eventStore == nil {
		return
	}
	if _, err := r.eventStore.Append(ctx, orderID, AggregateType, eventType, data); err != nil {
		r.log.Error("failed to record order event", "order_id", orderID, "event", eventType, "error", err)
	}
}
