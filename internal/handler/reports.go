package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/report"
)

// ReportsHandler handles owner report endpoints.
type ReportsHandler struct {
	store OrderStore
	clock clock.Clock
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store OrderStore, clk clock.Clock) *ReportsHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &ReportsHandler{store: store, clock: clk}
}

// RegisterRoutes registers owner-only report endpoints.
// Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

// --- Response types ---

type productSalesResponse struct {
	Name         string `json:"name"`
	QuantitySold int    `json:"quantity_sold"`
	Revenue      string `json:"revenue"`
}

type summaryResponse struct {
	Range             string                 `json:"range"`
	TotalRevenue      string                 `json:"total_revenue"`
	PaidOrders        int                    `json:"paid_orders"`
	AverageOrderValue string                 `json:"average_order_value"`
	TopProducts       []productSalesResponse `json:"top_products"`
	TotalOrders       int                    `json:"total_orders"`
	ActiveOrders      int                    `json:"active_orders"`
	UnpaidOrders      int                    `json:"unpaid_orders"`
	RecentOrders      []orderResponse        `json:"recent_orders"`
}

// --- Handlers ---

// Summary returns revenue, average order value and best sellers over paid
// orders, plus the most recent orders. ?range=today|week|month limits the
// orders by creation time.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	rng := r.URL.Query().Get("range")
	start, err := report.RangeStart(rng, now)
	if err != nil {
		writeError(w, err)
		return
	}
	if rng == "" {
		rng = report.RangeAll
	}
	s := report.Summarize(h.store.ListOrders(order.Since(start)))

	resp := summaryResponse{
		Range:             rng,
		TotalRevenue:      money(s.TotalRevenue),
		PaidOrders:        s.PaidOrders,
		AverageOrderValue: money(s.AverageOrderValue),
		TopProducts:       make([]productSalesResponse, len(s.TopProducts)),
		TotalOrders:       s.TotalOrders,
		ActiveOrders:      s.ActiveOrders,
		UnpaidOrders:      s.UnpaidOrders,
		RecentOrders:      make([]orderResponse, len(s.Recent)),
	}
	for i, p := range s.TopProducts {
		resp.TopProducts[i] = productSalesResponse{Name: p.Name, QuantitySold: p.Quantity, Revenue: money(p.Revenue)}
	}
	for i, o := range s.Recent {
		resp.RecentOrders[i] = renderOrder(o, now)
	}

	writeJSON(w, http.StatusOK, resp)
}
