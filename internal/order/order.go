// Package order is the authoritative record of submitted orders and their
// fulfillment and payment lifecycle.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/enum"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusReceived  Status = enum.OrderStatusReceived
	StatusPreparing Status = enum.OrderStatusPreparing
	StatusCompleted Status = enum.OrderStatusCompleted
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = enum.PaymentStatusUnpaid
	PaymentPaid   PaymentStatus = enum.PaymentStatusPaid
)

// statusRank orders the fulfillment states; transitions may only increase it.
var statusRank = map[Status]int{
	StatusReceived:  0,
	StatusPreparing: 1,
	StatusCompleted: 2,
}

var paymentRank = map[PaymentStatus]int{
	PaymentUnpaid: 0,
	PaymentPaid:   1,
}

func (s Status) Valid() bool        { _, ok := statusRank[s]; return ok }
func (s PaymentStatus) Valid() bool { _, ok := paymentRank[s]; return ok }

// Next returns the adjacent following status, or false when s is terminal.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusReceived:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusCompleted, true
	}
	return "", false
}

// Line is the price snapshot of one product taken at checkout.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l Line) LineUnitPrice() decimal.Decimal { return l.UnitPrice }
func (l Line) LineQuantity() int              { return l.Quantity }

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   int             `json:"order_number"`
	TableNumber   int             `json:"table_number"`
	Lines         []Line          `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	OrderStatus   Status          `json:"order_status"`
	CreatedAt     time.Time       `json:"created_at"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// clone copies the line slice so callers never share backing arrays with
// the store.
func (o Order) clone() Order {
	o.Lines = append([]Line(nil), o.Lines...)
	return o
}

// Draft is the caller-supplied part of a new order. TotalAmount is already
// tax-inclusive.
type Draft struct {
	TableNumber   int
	Lines         []Line
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	CustomerName  string
	CustomerPhone string
	Notes         string
}

func (d Draft) validate() error {
	if d.TableNumber <= 0 {
		return apperr.Validation("table_number", "is required")
	}
	if len(d.Lines) == 0 {
		return apperr.Validation("items", "cart is empty")
	}
	for i, l := range d.Lines {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(l.ProductID) == "" {
			return apperr.Validation(field, "product_id is required")
		}
		if l.Quantity <= 0 {
			return apperr.Validation(field, "quantity must be > 0")
		}
		if l.UnitPrice.IsNegative() {
			return apperr.Validation(field, "unit_price must not be negative")
		}
	}
	if d.TotalAmount.IsNegative() {
		return apperr.Validation("total_amount", "must not be negative")
	}
	if d.PaymentStatus != "" && !d.PaymentStatus.Valid() {
		return apperr.Validation("payment_status", "invalid value")
	}
	return nil
}

// checkStatus reports whether moving from current to next changes anything.
// Skipping ahead (RECEIVED to COMPLETED) is allowed; moving back is not.
func checkStatus(current, next Status) (changed bool, err error) {
	if !next.Valid() {
		return false, apperr.Validation("status", "invalid status")
	}
	switch {
	case statusRank[next] == statusRank[current]:
		return false, nil
	case statusRank[next] < statusRank[current]:
		return false, fmt.Errorf("cannot transition from %s to %s: %w", current, next, apperr.ErrInvalidTransition)
	}
	return true, nil
}

func checkPayment(current, next PaymentStatus) (changed bool, err error) {
	if !next.Valid() {
		return false, apperr.Validation("payment_status", "invalid payment status")
	}
	switch {
	case paymentRank[next] == paymentRank[current]:
		return false, nil
	case paymentRank[next] < paymentRank[current]:
		return false, fmt.Errorf("cannot transition payment from %s to %s: %w", current, next, apperr.ErrInvalidTransition)
	}
	return true, nil
}

// mergeForward combines an incoming copy of an order with the stored one
// without letting either status move backward.
func mergeForward(stored, incoming Order) Order {
	merged := stored.clone()
	if statusRank[incoming.OrderStatus] > statusRank[stored.OrderStatus] {
		merged.OrderStatus = incoming.OrderStatus
	}
	if paymentRank[incoming.PaymentStatus] > paymentRank[stored.PaymentStatus] {
		merged.PaymentStatus = incoming.PaymentStatus
	}
	return merged
}
