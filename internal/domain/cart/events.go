package cart

import "time"

const AggregateType = "Cart"

const (
	EventItemAdded   = "ItemAddedToCart"
	EventCartCleared = "CartCleared"
)

type ItemAddedToCart struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"` // quantity after the add
	UnitPrice int       `json:"unit_price"`
	AddedAt   time.Time `json:"added_at"`
}

type CartCleared struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	ClearedAt time.Time `json:"cleared_at"`
}

// AggregateID returns the event-log stream id for a user's cart
func AggregateID(userID string) string {
	return "cart-" + userID
}
