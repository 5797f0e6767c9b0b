package checkout

import (
	"sync"

	"storefront-gateway/internal/models"
)

// CartItem is one line in the session cart.
type CartItem struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	FinalPrice float64 `json:"finalPrice"`
	Qty        int     `json:"qty"`
}

// Cart is a session-owned in-memory cart. Insertion order is preserved so the
// UI renders lines in the order they were added.
type Cart struct {
	mu    sync.Mutex
	items []CartItem
}

func NewCart() *Cart {
	return &Cart{}
}

// Add upserts a line: an existing product gets its quantity increased, a new
// one is appended.
func (c *Cart) Add(item CartItem) {
	if item.Qty < 1 {
		item.Qty = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == item.ProductID {
			c.items[i].Qty += item.Qty
			return
		}
	}
	c.items = append(c.items, item)
}

// SetQty sets the quantity of an existing line; qty <= 0 removes it.
func (c *Cart) SetQty(productID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			if qty <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			} else {
				c.items[i].Qty = qty
			}
			return
		}
	}
}

// Remove drops a line.
func (c *Cart) Remove(productID string) {
	c.SetQty(productID, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the lines.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// ItemsPrice is the cart subtotal.
func (c *Cart) ItemsPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, it := range c.items {
		total += it.FinalPrice * float64(it.Qty)
	}
	return total
}

// Len reports the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// orderItems converts the cart lines into order payload items.
func (c *Cart) orderItems() []models.OrderItem {
	items := c.Items()
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			FinalPrice: it.FinalPrice,
			Qty:        it.Qty,
		})
	}
	return out
}
