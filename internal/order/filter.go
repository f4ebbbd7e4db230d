package order

import (
	"iter"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Predicate selects orders in ListOrders.
type Predicate func(Order) bool

func matchAll(o Order, preds []Predicate) bool {
	for _, p := range preds {
		if p != nil && !p(o) {
			return false
		}
	}
	return true
}

// Active excludes COMPLETED orders, the staff queue view.
func Active() Predicate {
	return func(o Order) bool { return o.OrderStatus != StatusCompleted }
}

func WithStatus(s Status) Predicate {
	return func(o Order) bool { return o.OrderStatus == s }
}

func WithPayment(p PaymentStatus) Predicate {
	return func(o Order) bool { return o.PaymentStatus == p }
}

// Since keeps orders created at or after t. The zero time matches
// everything.
func Since(t time.Time) Predicate {
	if t.IsZero() {
		return nil
	}
	return func(o Order) bool { return !o.CreatedAt.Before(t) }
}

// Search matches q against order number, table number, customer name
// (case-insensitive) and phone. An empty q matches everything.
func Search(q string) Predicate {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	lower := strings.ToLower(q)
	return func(o Order) bool {
		return strings.Contains(strconv.Itoa(o.OrderNumber), q) ||
			strings.Contains(strconv.Itoa(o.TableNumber), q) ||
			strings.Contains(strings.ToLower(o.CustomerName), lower) ||
			strings.Contains(o.CustomerPhone, q)
	}
}

// SortOldestFirst collects seq and orders it by CreatedAt ascending, the
// order the cashier queue is worked in. Ties keep insertion order.
func SortOldestFirst(seq iter.Seq[Order]) []Order {
	orders := slices.Collect(seq)
	slices.SortStableFunc(orders, func(a, b Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return orders
}
