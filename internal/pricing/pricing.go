// Package pricing computes cart and order totals in minor currency units
// and renders them as the text blocks shown to customers.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xmtea/whatsapp-bot/internal/domain/cart"
)

// DefaultDeliveryFee is the flat surcharge, 20₺ in kuruş
const DefaultDeliveryFee = 2000

type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Amount    int    `json:"amount"`
}

// Summary is a priced view of a set of cart items. All amounts are minor units.
type Summary struct {
	Lines       []Line `json:"lines"`
	Subtotal    int    `json:"subtotal"`
	DeliveryFee int    `json:"delivery_fee"`
	GrandTotal  int    `json:"grand_total"`
}

// ItemCount returns the number of distinct rows
func (s Summary) ItemCount() int {
	return len(s.Lines)
}

type Engine struct {
	deliveryFee int
}

func NewEngine(deliveryFee int) *Engine {
	if deliveryFee < 0 {
		deliveryFee = 0
	}
	return &Engine{deliveryFee: deliveryFee}
}

func (e *Engine) DeliveryFee() int {
	return e.deliveryFee
}

// Summarize prices items in their cart order. An empty cart carries no delivery fee.
func (e *Engine) Summarize(items []cart.CartItem) Summary {
	s := Summary{Lines: make([]Line, 0, len(items))}
	for _, it := range items {
		amount := it.Amount()
		s.Lines = append(s.Lines, Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    amount,
		})
		s.Subtotal += amount
	}
	if len(s.Lines) > 0 {
		s.DeliveryFee = e.deliveryFee
	}
	s.GrandTotal = s.Subtotal + s.DeliveryFee
	return s
}

// FormatAmount renders minor units as lira: 15000 -> "150₺", 15050 -> "150,50₺"
func FormatAmount(minor int) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole, frac := minor/100, minor%100
	if frac == 0 {
		return sign + strconv.Itoa(whole) + "₺"
	}
	return fmt.Sprintf("%s%d,%02d₺", sign, whole, frac)
}

// LinesText renders a numbered name line per cart line followed by an
// indented "2x 150₺ = 300₺" quantity line, blocks separated by a blank line.
func (s Summary) LinesText() string {
	var b strings.Builder
	for i, l := range s.Lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   %dx %s = %s", i+1, l.Name, l.Quantity, FormatAmount(l.UnitPrice), FormatAmount(l.Amount))
	}
	return b.String()
}

// Text renders the lines followed by subtotal, delivery fee and grand total
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString(s.LinesText())
	b.WriteString("\n\n")
	b.WriteString(strings.Repeat("━", 30))
	fmt.Fprintf(&b, "\n\n💰 *TOPLAM: %s*", FormatAmount(s.Subtotal))
	fmt.Fprintf(&b, "\n🚚 Teslimat: %s", FormatAmount(s.DeliveryFee))
	fmt.Fprintf(&b, "\n\n✅ *GENEL TOPLAM: %s*", FormatAmount(s.GrandTotal))
	return b.String()
}
