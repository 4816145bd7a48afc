// Package cart holds an ordered collection of line items with derived
// totals, feeding the amounts sent to checkout and verification.
package cart

import (
	"sync"

	"github.com/punchamoorthee/checkoutops/internal/domain"
)

// Item is one cart entry. Prices are minor units; Savings is per unit and
// only counted when OriginalPrice is set.
type Item struct {
	ID            string `json:"id"`
	ProductName   string `json:"productName"`
	ProductType   string `json:"productType"`
	Quantity      int    `json:"quantity"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"originalPrice,omitempty"`
	Savings       int64  `json:"savings,omitempty"`
}

// Totals are recomputed after every mutation.
type Totals struct {
	TotalItems   int   `json:"totalItems"`
	Subtotal     int64 `json:"subtotal"`
	TotalSavings int64 `json:"totalSavings"`
}

// Cart is safe for concurrent use. Items keep insertion order; adding an
// existing id merges quantities in place.
type Cart struct {
	mu     sync.Mutex
	items  []Item
	totals Totals
}

func New() *Cart {
	return &Cart{}
}

// Add inserts item with the given quantity, merging with an existing entry
// of the same id. Non-positive quantities are ignored.
func (c *Cart) Add(item Item, quantity int) {
	if quantity <= 0 || item.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += quantity
			c.recompute()
			return
		}
	}
	item.Quantity = quantity
	c.items = append(c.items, item)
	c.recompute()
}

// Remove drops the entry with the given id, if present.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, it := range c.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.recompute()
}

// UpdateQuantity sets the quantity for itemID; zero or negative removes
// the entry.
func (c *Cart) UpdateQuantity(itemID string, quantity int) {
	if quantity <= 0 {
		c.Remove(itemID)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == itemID {
			c.items[i].Quantity = quantity
			break
		}
	}
	c.recompute()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.totals = Totals{}
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Totals returns the current derived totals.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// LineItems converts the cart into the order line-item shape sent
// downstream.
func (c *Cart) LineItems() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.LineItem, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, domain.LineItem{
			ProductName: it.ProductName,
			ProductType: it.ProductType,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
		})
	}
	return items
}

// recompute rebuilds totals; caller holds the lock.
func (c *Cart) recompute() {
	t := Totals{}
	for _, it := range c.items {
		t.TotalItems += it.Quantity
		t.Subtotal += it.Price * int64(it.Quantity)
		if it.OriginalPrice > 0 && it.Savings > 0 {
			t.TotalSavings += it.Savings * int64(it.Quantity)
		}
	}
	c.totals = t
}
