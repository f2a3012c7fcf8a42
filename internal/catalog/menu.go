package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotFound            = errors.New("catalog item not found")
	ErrUpstreamUnavailable = errors.New("menu source unavailable")
	ErrInvalidPrice        = errors.New("invalid price")
)

const (
	categoryPrefix = "cat_"
	productPrefix  = "prod_"
)

type Business struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Featured bool    `json:"featured"`
	Campaign bool    `json:"campaign"`
	Rating   float64 `json:"rating"`
}

// Category groups products. An empty BusinessID means the category is
// shared by every business.
type Category struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Section     string `json:"section"`
	BusinessID  string `json:"business_id,omitempty"`
}

// Product prices are minor currency units
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Available   bool   `json:"available"`
	CategoryID  string `json:"category_id"`
}

// Menu is one full snapshot of businesses, categories and products
type Menu struct {
	Businesses []Business
	Categories []Category
	// products by category id, in menu order
	Products map[string][]Product
}

func (m *Menu) Business(id string) (Business, error) {
	for _, b := range m.Businesses {
		if b.ID == id {
			return b, nil
		}
	}
	return Business{}, fmt.Errorf("%w: business %q", ErrNotFound, id)
}

func (m *Menu) Featured() []Business {
	var out []Business
	for _, b := range m.Businesses {
		if b.Featured {
			out = append(out, b)
		}
	}
	return out
}

func (m *Menu) Campaigns() []Business {
	var out []Business
	for _, b := range m.Businesses {
		if b.Campaign {
			out = append(out, b)
		}
	}
	return out
}

// CategoriesFor returns the categories of a business plus the shared ones
func (m *Menu) CategoriesFor(businessID string) []Category {
	var out []Category
	for _, c := range m.Categories {
		if c.BusinessID == "" || c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	return out
}

func (m *Menu) Category(id string) (Category, error) {
	for _, c := range m.Categories {
		if c.ID == id {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: category %q", ErrNotFound, id)
}

// AvailableProducts lists the orderable products of a category
func (m *Menu) AvailableProducts(categoryID string) []Product {
	var out []Product
	for _, p := range m.Products[categoryID] {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

// Product looks a product up by id. Unavailable products count as missing.
func (m *Menu) Product(id string) (Product, error) {
	for _, products := range m.Products {
		for _, p := range products {
			if p.ID == id && p.Available {
				return p, nil
			}
		}
	}
	return Product{}, fmt.Errorf("%w: product %q", ErrNotFound, id)
}

// ProductCount returns the number of products across all categories
func (m *Menu) ProductCount() int {
	var n int
	for _, products := range m.Products {
		n += len(products)
	}
	return n
}

// remote JSON shapes

type rawMenu struct {
	Businesses []Business              `json:"businesses"`
	Categories []Category              `json:"categories"`
	Products   map[string][]rawProduct `json:"products"`
}

type rawProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
	Available   *bool           `json:"available"`
}

// ParseMenu decodes the remote menu document. Category keys and product ids
// are normalized to carry the cat_ and prod_ prefixes; a missing available
// flag means available.
func ParseMenu(data []byte) (*Menu, error) {
	var raw rawMenu
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode menu: %w", err)
	}

	m := &Menu{
		Businesses: raw.Businesses,
		Categories: make([]Category, 0, len(raw.Categories)),
		Products:   make(map[string][]Product, len(raw.Products)),
	}
	for _, c := range raw.Categories {
		c.ID = withPrefix(categoryPrefix, c.ID)
		m.Categories = append(m.Categories, c)
	}

	// map iteration order is random; sort keys so parsing is deterministic
	keys := make([]string, 0, len(raw.Products))
	for k := range raw.Products {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		catID := withPrefix(categoryPrefix, key)
		for _, rp := range raw.Products[key] {
			price, err := decodePrice(rp.Price)
			if err != nil {
				return nil, fmt.Errorf("product %q: %w", rp.ID, err)
			}
			m.Products[catID] = append(m.Products[catID], Product{
				ID:          withPrefix(productPrefix, rp.ID),
				Name:        rp.Name,
				Description: rp.Description,
				Price:       price,
				Available:   rp.Available == nil || *rp.Available,
				CategoryID:  catID,
			})
		}
	}
	return m, nil
}

func withPrefix(prefix, id string) string {
	if id == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// decodePrice accepts a JSON integer of minor units or a lira string
func decodePrice(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing", ErrInvalidPrice)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, n)
		}
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, raw)
	}
	return ParsePrice(s)
}

// ParsePrice converts a lira amount such as "250₺", "250 TL", "12,50₺" or
// "12.5" into minor units without going through floating point.
func ParsePrice(s string) (int, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "₺")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "TL")
	clean = strings.TrimSpace(clean)
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	whole, frac, hasFrac := strings.Cut(clean, ".")
	lira, err := strconv.Atoi(whole)
	if err != nil || lira < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	var kurus int
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		kurus, err = strconv.Atoi(frac)
		if err != nil || kurus < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
		}
	}
	return lira*100 + kurus, nil
}
