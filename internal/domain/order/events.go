package order

import "time"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

type OrderPlaced struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	BusinessID    string        `json:"business_id,omitempty"`
	Items         []OrderItem   `json:"items"`
	Total         int           `json:"total"`
	DeliveryFee   int           `json:"delivery_fee"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PlacedAt      time.Time     `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

func placedEvent(o *Order) OrderPlaced {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		})
	}
	return OrderPlaced{
		OrderID:       o.ID,
		UserID:        o.UserID,
		BusinessID:    o.BusinessID,
		Items:         items,
		Total:         o.Total,
		DeliveryFee:   o.DeliveryFee,
		PaymentMethod: o.PaymentMethod,
		PlacedAt:      o.ConfirmedAt,
	}
}
