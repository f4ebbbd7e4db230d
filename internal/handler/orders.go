package handler

import (
	"context"
	"iter"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/pricing"
	"github.com/orderin/api/internal/urgency"
)

// OrderStore defines the order store methods needed by order handlers.
// Satisfied by *order.Store; narrow interface for testability.
type OrderStore interface {
	Get(id string) (order.Order, error)
	ListOrders(preds ...order.Predicate) iter.Seq[order.Order]
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) (order.Order, error)
	Loading() bool
}

// Refresher runs one feed step out of cycle.
// Satisfied by *feed.Synchronizer.
type Refresher interface {
	Refresh(ctx context.Context) ([]order.Order, error)
}

// OrderHandler handles order tracking and the staff queue.
type OrderHandler struct {
	store OrderStore
	feed  Refresher
	clock clock.Clock
}

// NewOrderHandler creates a new OrderHandler. feed may be nil, in which case
// manual refresh is reported as unavailable.
func NewOrderHandler(store OrderStore, feed Refresher, clk clock.Clock) *OrderHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &OrderHandler{store: store, feed: feed, clock: clk}
}

// RegisterPublicRoutes registers the customer status endpoint.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
}

// RegisterRoutes registers staff endpoints. Expected to be mounted at
// /orders behind authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/refresh", h.Refresh)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/payment", h.UpdatePayment)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    int                 `json:"order_number"`
	TableNumber    int                 `json:"table_number"`
	Items          []orderItemResponse `json:"items"`
	TotalAmount    string              `json:"total_amount"`
	PaymentStatus  string              `json:"payment_status"`
	OrderStatus    string              `json:"order_status"`
	NextStatus     *string             `json:"next_status"`
	CreatedAt      time.Time           `json:"created_at"`
	CustomerName   string              `json:"customer_name,omitempty"`
	CustomerPhone  string              `json:"customer_phone,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	Urgency        string              `json:"urgency"`
	ElapsedMinutes int                 `json:"elapsed_minutes"`
}

type orderListResponse struct {
	Orders  []orderResponse `json:"orders"`
	Loading bool            `json:"loading"`
}

type refreshResponse struct {
	Injected []orderResponse `json:"injected"`
}

// --- Handlers ---

// Get returns one order. Public: customers track their order by ID.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(o, h.clock.Now()))
}

// List returns orders most recent first, or oldest first with ?sort=oldest.
// Filters: status, payment, active=true, q (order number, table, customer
// name or phone).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var preds []order.Predicate

	if s := q.Get("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		preds = append(preds, order.WithStatus(status))
	}
	if p := q.Get("payment"); p != "" {
		payment := order.PaymentStatus(p)
		if !payment.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment filter"})
			return
		}
		preds = append(preds, order.WithPayment(payment))
	}
	if q.Get("active") == "true" {
		preds = append(preds, order.Active())
	}
	if s := q.Get("q"); s != "" {
		preds = append(preds, order.Search(s))
	}

	seq := h.store.ListOrders(preds...)
	var orders []order.Order
	switch q.Get("sort") {
	case "", "newest":
		orders = slices.Collect(seq)
	case "oldest":
		orders = order.SortOldestFirst(seq)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sort must be newest or oldest"})
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders:  h.renderAll(orders),
		Loading: h.store.Loading(),
	})
}

// UpdateStatus moves an order forward through its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status := order.Status(req.Status)
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be RECEIVED, PREPARING or COMPLETED"})
		return
	}

	o, err := h.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(o, h.clock.Now()))
}

// UpdatePayment marks an order paid.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status := order.PaymentStatus(req.PaymentStatus)
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_status must be UNPAID or PAID"})
		return
	}

	o, err := h.store.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderOrder(o, h.clock.Now()))
}

// Refresh runs one feed step immediately and returns the injected orders.
func (h *OrderHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order feed is disabled"})
		return
	}

	injected, err := h.feed.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Injected: h.renderAll(injected)})
}

// Render shapes an order the way the HTTP API returns it. Used as the
// WebSocket payload renderer.
func (h *OrderHandler) Render(o order.Order) any {
	return renderOrder(o, h.clock.Now())
}

// --- Helpers ---

func (h *OrderHandler) renderAll(orders []order.Order) []orderResponse {
	now := h.clock.Now()
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = renderOrder(o, now)
	}
	return resp
}

// renderOrder computes urgency at response time; it is never stored.
func renderOrder(o order.Order, now time.Time) orderResponse {
	items := make([]orderItemResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderItemResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			LineTotal: money(pricing.LineTotal(l)),
		}
	}

	var next *string
	if s, ok := o.OrderStatus.Next(); ok {
		ns := string(s)
		next = &ns
	}

	return orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		TableNumber:    o.TableNumber,
		Items:          items,
		TotalAmount:    money(o.TotalAmount),
		PaymentStatus:  string(o.PaymentStatus),
		OrderStatus:    string(o.OrderStatus),
		NextStatus:     next,
		CreatedAt:      o.CreatedAt,
		CustomerName:   o.CustomerName,
		CustomerPhone:  o.CustomerPhone,
		Notes:          o.Notes,
		Urgency:        string(urgency.Classify(o.CreatedAt, now)),
		ElapsedMinutes: urgency.ElapsedMinutes(o.CreatedAt, now),
	}
}
