// Package report aggregates the order collection into the owner's sales
// summary.
package report

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/pricing"
	"github.com/shopspring/decimal"
)

const (
	TopProductLimit   = 5
	RecentOrdersLimit = 5
)

type ProductSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Report ranges accepted by RangeStart.
const (
	RangeAll   = "all"
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

// RangeStart returns the earliest CreatedAt a range covers. Week and month
// count back 7 and 30 days from the start of today. An empty range and
// RangeAll return the zero time.
func RangeStart(rng string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch rng {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeToday:
		return today, nil
	case RangeWeek:
		return today.AddDate(0, 0, -7), nil
	case RangeMonth:
		return today.AddDate(0, 0, -30), nil
	default:
		return time.Time{}, apperr.Validation("range", "must be one of all, today, week, month")
	}
}

// Summary covers paid orders only, except for the queue counters and
// Recent, which look at every order.
type Summary struct {
	TotalRevenue      decimal.Decimal
	PaidOrders        int
	AverageOrderValue decimal.Decimal
	TopProducts       []ProductSales

	TotalOrders  int
	ActiveOrders int
	UnpaidOrders int
	Recent       []order.Order
}

// Summarize walks orders once. Products are keyed by name, ranked by
// quantity sold and then by name.
func Summarize(orders iter.Seq[order.Order]) Summary {
	s := Summary{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}
	sold := make(map[string]ProductSales)

	for o := range orders {
		s.TotalOrders++
		if len(s.Recent) < RecentOrdersLimit {
			s.Recent = append(s.Recent, o)
		}
		if o.OrderStatus != order.StatusCompleted {
			s.ActiveOrders++
		}
		if o.PaymentStatus != order.PaymentPaid {
			s.UnpaidOrders++
			continue
		}

		s.PaidOrders++
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
		for _, l := range o.Lines {
			p := sold[l.Name]
			p.Name = l.Name
			p.Quantity += l.Quantity
			p.Revenue = p.Revenue.Add(pricing.LineTotal(l))
			sold[l.Name] = p
		}
	}

	if s.PaidOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.PaidOrders)))
	}
	s.TopProducts = topProducts(sold, TopProductLimit)
	return s
}

func topProducts(sold map[string]ProductSales, limit int) []ProductSales {
	out := make([]ProductSales, 0, len(sold))
	for _, p := range sold {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ProductSales) int {
		if a.Quantity != b.Quantity {
			return b.Quantity - a.Quantity
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
