// Package pricing turns line items into subtotal, tax and total.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is PPN 12%, applied once to the subtotal.
var TaxRate = decimal.RequireFromString("0.12")

// Line is anything priced as unit price times quantity.
// Satisfied by cart.Line and order.Line.
type Line interface {
	LineUnitPrice() decimal.Decimal
	LineQuantity() int
}

// Totals is always derived from the current lines, never patched.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums unit_price * quantity over lines and applies tax once.
// An empty slice yields zero for all three values.
func ComputeTotals[L Line](lines []L) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
	}
	return FromSubtotal(subtotal)
}

// FromSubtotal derives tax and total from an already-summed subtotal.
func FromSubtotal(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// LineTotal is unit_price * quantity for a single line.
func LineTotal(l Line) decimal.Decimal {
	return l.LineUnitPrice().Mul(decimal.NewFromInt(int64(l.LineQuantity())))
}

// IsZero reports whether all three amounts are zero.
func (t Totals) IsZero() bool {
	return t.Subtotal.IsZero() && t.Tax.IsZero() && t.Total.IsZero()
}
