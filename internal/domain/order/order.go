package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
)

const AggregateType = "Order"

type Status string

const (
	StatusReceived  Status = "received"
	StatusPreparing Status = "preparing"
	StatusOnTheWay  Status = "on_the_way"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("duplicate order id")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrInvalidPeriod    = errors.New("invalid stats period")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidPayment   = errors.New("invalid payment method")
)

// TimestampPrecision is the finest resolution every repository keeps.
// Postgres TIMESTAMPTZ stores microseconds.
const TimestampPrecision = time.Microsecond

// statuses lists the fixed status enum in delivery order
var statuses = []Status{StatusReceived, StatusPreparing, StatusOnTheWay, StatusDelivered, StatusCancelled}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts only members of the status enum
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Label returns the customer-facing Turkish name of the status
func (s Status) Label() string {
	switch s {
	case StatusReceived:
		return "Alındı"
	case StatusPreparing:
		return "Hazırlanıyor"
	case StatusOnTheWay:
		return "Yolda"
	case StatusDelivered:
		return "Teslim Edildi"
	case StatusCancelled:
		return "İptal Edildi"
	default:
		return string(s)
	}
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentSodexo   PaymentMethod = "sodexo"
	PaymentMultinet PaymentMethod = "multinet"
	PaymentMealCard PaymentMethod = "meal_card"
)

var paymentLabels = map[PaymentMethod]string{
	PaymentCash:     "Kapıda Nakit",
	PaymentCard:     "Kapıda Kredi Kartı",
	PaymentSodexo:   "Sodexo",
	PaymentMultinet: "Multinet",
	PaymentMealCard: "Yemek Kartı",
}

func (p PaymentMethod) Valid() bool {
	_, ok := paymentLabels[p]
	return ok
}

func (p PaymentMethod) Label() string {
	if label, ok := paymentLabels[p]; ok {
		return label
	}
	return string(p)
}

// StatusChange is one entry of an order's status history
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

// Pending is the draft materialized when the customer picks a payment method.
// Total is the items subtotal in minor units; DeliveryFee is kept alongside it.
type Pending struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	BusinessID    string          `json:"business_id,omitempty"`
	Items         []cart.CartItem `json:"items"`
	Total         int             `json:"total"`
	DeliveryFee   int             `json:"delivery_fee"`
	Address       string          `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// GrandTotal returns Total plus the delivery fee
func (p Pending) GrandTotal() int {
	return p.Total + p.DeliveryFee
}

// Order is a finalized order. Only its status and history change after creation.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	BusinessID    string          `json:"business_id,omitempty"`
	Items         []cart.CartItem `json:"items"`
	Total         int             `json:"total"`
	DeliveryFee   int             `json:"delivery_fee"`
	Address       string          `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	StatusHistory []StatusChange  `json:"status_history"`
	CreatedAt     time.Time       `json:"created_at"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// FromPending builds a Received order out of a confirmed draft
func FromPending(p Pending, confirmedAt time.Time) *Order {
	items := make([]cart.CartItem, len(p.Items))
	copy(items, p.Items)

	return &Order{
		ID:            p.OrderID,
		UserID:        p.UserID,
		BusinessID:    p.BusinessID,
		Items:         items,
		Total:         p.Total,
		DeliveryFee:   p.DeliveryFee,
		Address:       p.Address,
		PaymentMethod: p.PaymentMethod,
		Status:        StatusReceived,
		StatusHistory: []StatusChange{{Status: StatusReceived, At: confirmedAt}},
		CreatedAt:     p.CreatedAt,
		ConfirmedAt:   confirmedAt,
		UpdatedAt:     confirmedAt,
	}
}

func (o *Order) GrandTotal() int {
	return o.Total + o.DeliveryFee
}

// SetStatus moves the order to status and records the change
func (o *Order) SetStatus(status Status, note string, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: status, At: at, Note: note})
	o.UpdatedAt = at
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored orders
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]cart.CartItem, len(o.Items))
	copy(c.Items, o.Items)
	c.StatusHistory = make([]StatusChange, len(o.StatusHistory))
	copy(c.StatusHistory, o.StatusHistory)
	return &c
}
