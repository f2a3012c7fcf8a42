package cart

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateID(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		expectedID string
	}{
		{"phone number", "905551112233", "cart-905551112233"},
		{"empty user ID", "", "cart-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedID, AggregateID(tt.userID))
		})
	}
}

// ============================================
// AddItem Tests
// ============================================

func TestCart_AddItem_NewProduct(t *testing.T) {
	c := New("user-1")

	c.AddItem("prod_adana", "Adana Kebap", 15000)

	require.Len(t, c.Items, 1)
	assert.Equal(t, CartItem{ProductID: "prod_adana", Name: "Adana Kebap", UnitPrice: 15000, Quantity: 1}, c.Items[0])
}

func TestCart_AddItem_SameProductAccumulates(t *testing.T) {
	for _, n := range []int{1, 2, 5, 37} {
		t.Run(fmt.Sprintf("%d times", n), func(t *testing.T) {
			c := New("user-1")
			for i := 0; i < n; i++ {
				c.AddItem("prod_adana", "Adana Kebap", 150)
			}

			require.Len(t, c.Items, 1)
			assert.Equal(t, n, c.Items[0].Quantity)
			assert.Equal(t, 150*n, c.Total())
		})
	}
}

func TestCart_AddItem_PreservesFirstSelectionOrder(t *testing.T) {
	c := New("user-1")

	c.AddItem("prod_cola", "Coca Cola", 2500)
	c.AddItem("prod_adana", "Adana Kebap", 15000)
	c.AddItem("prod_cola", "Coca Cola", 2500)

	require.Len(t, c.Items, 2)
	assert.Equal(t, "prod_cola", c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "prod_adana", c.Items[1].ProductID)
}

func TestCart_AddItem_ZeroPrice(t *testing.T) {
	c := New("user-1")

	// Zero price is allowed (free items)
	c.AddItem("prod_water", "Su", 0)

	assert.Equal(t, 0, c.Total())
	assert.Equal(t, 1, c.Count())
}

// ============================================
// Total Tests
// ============================================

func TestCart_Total_Empty(t *testing.T) {
	assert.Equal(t, 0, New("u").Total())
}

func TestCart_Total_MatchesSumOfRows(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		c := New("user-1")
		expected := map[string]int{}
		prices := map[string]int{}

		for i := 0; i < rng.Intn(40); i++ {
			id := fmt.Sprintf("prod_%d", rng.Intn(8))
			if _, ok := prices[id]; !ok {
				prices[id] = rng.Intn(50000)
			}
			c.AddItem(id, id, prices[id])
			expected[id]++
		}

		var want int
		for id, qty := range expected {
			want += prices[id] * qty
		}
		assert.Equal(t, want, c.Total(), "round %d", round)
		assert.Len(t, c.Items, len(expected), "round %d", round)
	}
}

// ============================================
// Clear / Snapshot Tests
// ============================================

func TestCart_Clear(t *testing.T) {
	c := New("user-1")
	c.AddItem("prod_adana", "Adana Kebap", 150)

	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Total())
	assert.NotNil(t, c.Items)
}

func TestCart_Clear_EmptyCart(t *testing.T) {
	c := New("user-1")

	// Clearing an empty cart is a no-op
	c.Clear()

	assert.True(t, c.IsEmpty())
}

func TestCart_Snapshot_IsIndependent(t *testing.T) {
	c := New("user-1")
	c.AddItem("prod_adana", "Adana Kebap", 150)

	snap := c.Snapshot()
	c.AddItem("prod_adana", "Adana Kebap", 150)
	c.AddItem("prod_cola", "Coca Cola", 25)

	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Quantity)
}
