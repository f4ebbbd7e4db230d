// Package catalog serves the menu the cart resolves items against.
package catalog

import (
	"slices"
	"sync"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/enum"
	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Available   bool            `json:"is_available"`
	Rating      float64         `json:"rating,omitempty"`
}

// Catalog is an in-memory menu keyed by item ID. List order is insertion
// order.
type Catalog struct {
	mu    sync.RWMutex
	items []MenuItem
}

func New(items []MenuItem) *Catalog {
	return &Catalog{items: slices.Clone(items)}
}

// Default returns a catalog seeded with the house menu.
func Default() *Catalog {
	return New(DefaultMenu())
}

func (c *Catalog) Get(id string) (MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := slices.IndexFunc(c.items, func(m MenuItem) bool { return m.ID == id })
	if i < 0 {
		return MenuItem{}, apperr.NotFound("menu item", id)
	}
	return c.items[i], nil
}

// List returns items in the given category, or every item when category is
// empty.
func (c *Catalog) List(category string) []MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]MenuItem, 0, len(c.items))
	for _, m := range c.items {
		if category != "" && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Available returns the items that can currently be ordered.
func (c *Catalog) Available() []MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]MenuItem, 0, len(c.items))
	for _, m := range c.items {
		if m.Available {
			out = append(out, m)
		}
	}
	return out
}

// SetAvailable toggles whether an item can be ordered.
func (c *Catalog) SetAvailable(id string, available bool) (MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.items, func(m MenuItem) bool { return m.ID == id })
	if i < 0 {
		return MenuItem{}, apperr.NotFound("menu item", id)
	}
	c.items[i].Available = available
	return c.items[i], nil
}

// Resolve looks up an orderable item. Unknown and unavailable items are
// validation failures from the caller's point of view.
func (c *Catalog) Resolve(id string) (MenuItem, error) {
	m, err := c.Get(id)
	if err != nil {
		return MenuItem{}, apperr.Validation("id", "unknown menu item "+id)
	}
	if !m.Available {
		return MenuItem{}, apperr.Validation("id", m.Name+" is not available")
	}
	return m, nil
}

const placeholderImage = "/placeholder.svg?height=200&width=300"

func item(id, name string, price int64, desc, category string, rating float64) MenuItem {
	return MenuItem{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Description: desc,
		ImageURL:    placeholderImage,
		Category:    category,
		Available:   true,
		Rating:      rating,
	}
}

// DefaultMenu is the house menu in display order.
func DefaultMenu() []MenuItem {
	return []MenuItem{
		item("1", "Nasi Goreng Spesial", 25000, "Nasi goreng dengan telur, ayam suwir, dan acar", enum.CategoryFood, 4.5),
		item("2", "Ayam Bakar Madu", 35000, "Ayam bakar dengan bumbu madu dan sambal terasi", enum.CategoryFood, 4.8),
		item("3", "Mie Ayam Bakso", 20000, "Mie ayam dengan bakso dan pangsit goreng", enum.CategoryFood, 4.3),
		item("4", "Gado-gado", 18000, "Sayuran segar dengan bumbu kacang", enum.CategoryFood, 4.2),
		item("5", "Soto Ayam", 22000, "Soto ayam dengan nasi dan kerupuk", enum.CategoryFood, 4.6),
		item("6", "Es Teh Manis", 8000, "Teh manis segar dengan es batu", enum.CategoryDrink, 4.2),
		item("7", "Jus Alpukat", 15000, "Jus alpukat segar dengan susu kental manis", enum.CategoryDrink, 4.6),
		item("8", "Es Jeruk", 10000, "Jeruk peras segar dengan es dan gula", enum.CategoryDrink, 4.1),
		item("9", "Kopi Hitam", 12000, "Kopi hitam robusta pilihan", enum.CategoryDrink, 4.4),
		item("10", "Cappuccino", 18000, "Kopi cappuccino dengan foam susu", enum.CategoryDrink, 4.7),
		item("11", "Keripik Singkong", 12000, "Keripik singkong renyah dengan bumbu balado", enum.CategorySnack, 4.3),
		item("12", "Pisang Goreng", 10000, "Pisang goreng crispy dengan gula halus", enum.CategorySnack, 4.0),
		item("13", "Tahu Isi", 8000, "Tahu goreng isi sayuran dengan sambal kacang", enum.CategorySnack, 4.2),
		item("14", "Es Krim Vanilla", 15000, "Es krim vanilla dengan topping coklat", enum.CategoryDessert, 4.5),
		item("15", "Puding Coklat", 12000, "Puding coklat dengan whipped cream", enum.CategoryDessert, 4.3),
	}
}
