package cart

// CartItem is one row of a cart. UnitPrice is in minor currency units.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int    `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Amount returns UnitPrice * Quantity
func (i CartItem) Amount() int {
	return i.UnitPrice * i.Quantity
}

// Cart is the ordered list of items a single user has selected.
// Rows are unique by ProductID and keep the order of first selection.
type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

func New(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// AddItem adds one unit of a product. Selecting a product already in the
// cart increments its quantity; it never creates a second row.
func (c *Cart) AddItem(productID, name string, unitPrice int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  1,
	})
}

// Total returns the sum of UnitPrice * Quantity over all rows
func (c *Cart) Total() int {
	var total int
	for _, item := range c.Items {
		total += item.Amount()
	}
	return total
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Count returns the number of units across all rows
func (c *Cart) Count() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Snapshot returns a copy of the items that later cart mutations cannot touch
func (c *Cart) Snapshot() []CartItem {
	out := make([]CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}
