// Package cart holds the in-progress selection of one customer session.
package cart

import (
	"slices"
	"strings"
	"sync"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// Item is the shape a menu item takes when it is added to a cart.
type Item struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	ImageRef  string
}

// Line is one distinct product in the cart.
type Line struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref"`
}

func (l Line) LineUnitPrice() decimal.Decimal { return l.UnitPrice }
func (l Line) LineQuantity() int              { return l.Quantity }

// Cart is safe for concurrent use; every mutation recomputes totals
// before the lock is released.
type Cart struct {
	mu     sync.Mutex
	lines  []Line
	totals pricing.Totals
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{totals: pricing.ComputeTotals[Line](nil)}
}

// AddLine increments the quantity of an existing line by one, or appends a
// new line with quantity 1.
func (c *Cart) AddLine(item Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, Line{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  1,
			ImageRef:  item.ImageRef,
		})
	}
	c.recompute()
	return nil
}

// RemoveLine deletes the line with id. Absent ids are ignored.
func (c *Cart) RemoveLine(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(id)
}

// SetQuantity sets the line quantity; q <= 0 removes the line.
// Unknown ids are ignored.
func (c *Cart) SetQuantity(id string, q int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q <= 0 {
		c.remove(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity = q
		c.recompute()
	}
}

// Clear empties the cart and resets totals to zero.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.recompute()
}

// ItemCount is the sum of all quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *Cart) Totals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Snapshot returns lines and totals read under one lock.
func (c *Cart) Snapshot() ([]Line, pricing.Totals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines), c.totals
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *Cart) index(id string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ID == id })
}

func (c *Cart) remove(id string) {
	if i := c.index(id); i >= 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
		c.recompute()
	}
}

func (c *Cart) recompute() {
	c.totals = pricing.ComputeTotals(c.lines)
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.ID) == "" {
		return apperr.Validation("id", "is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return apperr.Validation("name", "is required")
	}
	if item.UnitPrice.IsNegative() {
		return apperr.Validation("price", "must not be negative")
	}
	return nil
}
