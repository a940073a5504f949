package service

import (
	"sync"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartSession holds the items one operator has selected but not yet
// committed. It lives only in the operator's session memory; nothing here
// is persisted until the cart is submitted as an order or a checkout.
type CartSession struct {
	mu    sync.Mutex
	items []domain.CartItem
}

func NewCartSession() *CartSession {
	return &CartSession{}
}

// AddToCart increments the quantity when the product is already present,
// otherwise appends a new line with quantity 1.
func (c *CartSession) AddToCart(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, domain.CartItem{
		ProductID:           p.ID,
		Name:                p.Name,
		Price:               p.Price,
		Quantity:            1,
		RequiresPreparation: p.RequiresPreparation,
	})
}

// UpdateQuantity adjusts a line by delta, clamping at 1. A line never
// drops to zero through this path; removal is explicit.
func (c *CartSession) UpdateQuantity(productID uuid.UUID, delta int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			q := c.items[i].Quantity + delta
			if q < 1 {
				q = 1
			}
			c.items[i].Quantity = q
			return
		}
	}
}

// RemoveFromCart drops the line entirely regardless of quantity.
func (c *CartSession) RemoveFromCart(productID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the current selection in insertion order.
func (c *CartSession) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Clear empties the cart, e.g. after the items were committed.
func (c *CartSession) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Total is the cart's own sum, rounded to cents.
func (c *CartSession) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}

// GrandTotal merges the cart with the tab's history total. For counter
// sales there is no tab and the cart stands alone. The merge is recomputed
// on every call so a concurrent terminal's additions show up as soon as
// the tab is re-read.
func (c *CartSession) GrandTotal(tab *domain.Tab) decimal.Decimal {
	total := c.Total()
	if tab != nil && tab.TargetType != enum.TargetTypeCounter {
		total = total.Add(tab.Total)
	}
	return total.Round(2)
}
