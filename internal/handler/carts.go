package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/orderin/api/internal/cart"
	"github.com/orderin/api/internal/catalog"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/pricing"
)

// ItemResolver looks up orderable menu items.
// Satisfied by *catalog.Catalog; narrow interface for testability.
type ItemResolver interface {
	Resolve(id string) (catalog.MenuItem, error)
}

// OrderCreator is the slice of the order store used at checkout.
// Satisfied by *order.Store; narrow interface for testability.
type OrderCreator interface {
	CreateOrder(ctx context.Context, d order.Draft) (order.Order, error)
}

// CartHandler handles customer cart endpoints.
type CartHandler struct {
	carts  *cart.Registry
	menu   ItemResolver
	orders OrderCreator
	clock  clock.Clock
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Registry, menu ItemResolver, orders OrderCreator, clk clock.Clock) *CartHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &CartHandler{carts: carts, menu: menu, orders: orders, clock: clk}
}

// RegisterRoutes registers cart endpoints. Expected at /carts.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{cid}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/lines", h.AddLine)
		r.Put("/lines/{id}", h.SetQuantity)
		r.Delete("/lines/{id}", h.RemoveLine)
		r.Post("/checkout", h.Checkout)
	})
}

// --- Request / Response types ---

type addLineRequest struct {
	ID string `json:"id"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutRequest struct {
	TableNumber   int    `json:"table_number"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes"`
}

type cartLineResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
	ImageRef  string `json:"image_ref"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Lines     []cartLineResponse `json:"lines"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Tax       string             `json:"tax"`
	Total     string             `json:"total"`
}

// --- Handlers ---

// Open starts a new cart for a customer session.
func (h *CartHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, c := h.carts.Open()
	writeJSON(w, http.StatusCreated, toCartResponse(id, c))
}

// Get returns the cart with its derived totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// AddLine adds one unit of a menu item. Name, price and image come from the
// catalog, not the request.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}

	item, err := h.menu.Resolve(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.AddLine(cart.Item{ID: item.ID, Name: item.Name, UnitPrice: item.Price, ImageRef: item.ImageURL}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// SetQuantity overwrites a line's quantity; zero or less removes it.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}

	c.SetQuantity(chi.URLParam(r, "id"), *req.Quantity)
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// RemoveLine deletes a line. Removing an absent line is not an error.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	c.RemoveLine(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	c.Clear()
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// Checkout snapshots the cart into a new order and drops the cart. Every
// line is resolved against the catalog again; a line that became
// unavailable fails the checkout and leaves the cart intact. The cart is
// taken out of the registry for the duration, so a second checkout of the
// same cart gets 404.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.carts.Take(id)
	if err != nil {
		writeError(w, err)
		return
	}
	placed := false
	defer func() {
		if !placed {
			h.carts.Restore(id, c)
		}
	}()

	cartLines := c.Lines()
	lines := make([]order.Line, 0, len(cartLines))
	for _, l := range cartLines {
		item, err := h.menu.Resolve(l.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		lines = append(lines, order.Line{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  l.Quantity,
			UnitPrice: item.Price,
		})
	}

	o, err := h.orders.CreateOrder(r.Context(), order.Draft{
		TableNumber:   req.TableNumber,
		Lines:         lines,
		TotalAmount:   pricing.ComputeTotals(lines).Total,
		PaymentStatus: order.PaymentUnpaid,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	placed = true
	writeJSON(w, http.StatusCreated, renderOrder(o, h.clock.Now()))
}

// --- Helpers ---

func (h *CartHandler) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *cart.Cart, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart ID"})
		return uuid.Nil, nil, false
	}
	c, err := h.carts.Get(id)
	if err != nil {
		writeError(w, err)
		return uuid.Nil, nil, false
	}
	return id, c, true
}

func toCartResponse(id uuid.UUID, c *cart.Cart) cartResponse {
	lines, totals := c.Snapshot()
	resp := cartResponse{
		ID:       id,
		Lines:    make([]cartLineResponse, len(lines)),
		Subtotal: money(totals.Subtotal),
		Tax:      money(totals.Tax),
		Total:    money(totals.Total),
	}
	for i, l := range lines {
		resp.ItemCount += l.Quantity
		resp.Lines[i] = cartLineResponse{
			ID:        l.ID,
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money(pricing.LineTotal(l)),
			ImageRef:  l.ImageRef,
		}
	}
	return resp
}
