package cart_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, price int64) cart.Item {
	return cart.Item{ID: id, Name: "item " + id, UnitPrice: decimal.NewFromInt(price), ImageRef: "/img/" + id}
}

func TestAddLine_SameIDIncrements(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 25000)))
	require.NoError(t, c.AddLine(item("1", 25000)))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 2, c.ItemCount())
	assert.True(t, c.Totals().Subtotal.Equal(decimal.NewFromInt(50000)))
}

func TestAddLine_ScenarioTotals(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 25000)))
	require.NoError(t, c.AddLine(item("1", 25000)))
	require.NoError(t, c.AddLine(item("6", 8000)))

	totals := c.Totals()
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(58000)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(6960)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(64960)))
}

func TestAddLine_Validation(t *testing.T) {
	c := cart.New()

	err := c.AddLine(cart.Item{Name: "no id", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = c.AddLine(cart.Item{ID: "1", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = c.AddLine(cart.Item{ID: "1", Name: "x", UnitPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.True(t, c.IsEmpty())
}

func TestRemoveLine(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 10000)))
	require.NoError(t, c.AddLine(item("2", 5000)))

	c.RemoveLine("1")
	c.RemoveLine("missing")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "2", lines[0].ID)
	assert.True(t, c.Totals().Subtotal.Equal(decimal.NewFromInt(5000)))
}

func TestSetQuantity(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 10000)))
	require.NoError(t, c.AddLine(item("2", 5000)))

	c.SetQuantity("2", 4)
	assert.Equal(t, 5, c.ItemCount())
	assert.True(t, c.Totals().Subtotal.Equal(decimal.NewFromInt(30000)))

	c.SetQuantity("1", 0)
	assert.Equal(t, 4, c.ItemCount())
	require.Len(t, c.Lines(), 1)

	c.SetQuantity("2", -3)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Totals().IsZero())

	c.SetQuantity("ghost", 3)
	assert.True(t, c.IsEmpty())
}

func TestClear(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 10000)))
	c.Clear()

	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, c.Totals().IsZero())
}

func TestLinesIsACopy(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddLine(item("1", 10000)))

	lines := c.Lines()
	lines[0].Quantity = 99

	assert.Equal(t, 1, c.ItemCount())
}

func TestConcurrentAdds(t *testing.T) {
	c := cart.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AddLine(item("1", 1000))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.ItemCount())
	assert.True(t, c.Totals().Subtotal.Equal(decimal.NewFromInt(50000)))
}

func TestRegistry(t *testing.T) {
	r := cart.NewRegistry()
	id, c := r.Open()
	require.NoError(t, c.AddLine(item("1", 1000)))

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, c, got)

	r.Drop(id)
	_, err = r.Get(id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.Get(uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_TakeAndRestore(t *testing.T) {
	r := cart.NewRegistry()
	id, c := r.Open()

	taken, err := r.Take(id)
	require.NoError(t, err)
	assert.Same(t, c, taken)

	_, err = r.Take(id)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "a cart can only be taken once")

	r.Restore(id, taken)
	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, c, got)
}
