package ordering

import (
	"github.com/xmtea/whatsapp-bot/internal/catalog"
	"github.com/xmtea/whatsapp-bot/internal/domain/order"
	"github.com/xmtea/whatsapp-bot/internal/pricing"
)

// Kind names the view a directive asks the transport to render
type Kind string

const (
	KindMainMenu        Kind = "main_menu"
	KindRestaurantList  Kind = "restaurant_list"
	KindFeaturedList    Kind = "featured_list"
	KindCampaignList    Kind = "campaign_list"
	KindCategoryList    Kind = "category_list"
	KindProductList     Kind = "product_list"
	KindCartView        Kind = "cart_view"
	KindCartEmpty       Kind = "cart_empty"
	KindCartCleared     Kind = "cart_cleared"
	KindAskAddress      Kind = "ask_address"
	KindPaymentMethods  Kind = "payment_methods"
	KindOrderSummary    Kind = "order_summary"
	KindOrderConfirmed  Kind = "order_confirmed"
	KindOrderCancelled  Kind = "order_cancelled"
	KindOrderHistory    Kind = "order_history"
	KindOrderTracking   Kind = "order_tracking"
	KindHelp            Kind = "help"
	KindProductNotFound Kind = "product_not_found"
	KindNotFound        Kind = "not_found"
	KindError           Kind = "error"
)

// Directive is the router's reply. Only the fields relevant to Kind are set.
type Directive struct {
	Kind Kind `json:"kind"`

	Businesses []catalog.Business `json:"businesses,omitempty"`
	Business   *catalog.Business  `json:"business,omitempty"`
	Categories []catalog.Category `json:"categories,omitempty"`
	Category   *catalog.Category  `json:"category,omitempty"`
	Products   []catalog.Product  `json:"products,omitempty"`

	// CartView, PaymentMethods and OrderSummary carry the priced items.
	// Total is the items subtotal.
	Summary pricing.Summary `json:"summary"`
	Total   int             `json:"total"`

	Pending    *order.Pending `json:"pending,omitempty"`
	Order      *order.Order   `json:"order,omitempty"`
	Orders     []*order.Order `json:"orders,omitempty"`
	OrderID    string         `json:"order_id,omitempty"`
	ETAMinutes int            `json:"eta_minutes,omitempty"`

	Message string `json:"message,omitempty"`
}

func mainMenu() Directive {
	return Directive{Kind: KindMainMenu}
}

func errorDirective(msg string) Directive {
	return Directive{Kind: KindError, Message: msg}
}
