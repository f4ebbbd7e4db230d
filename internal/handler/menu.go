package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/catalog"
)

// MenuStore defines the catalog reads needed by menu handlers.
// Satisfied by *catalog.Catalog; narrow interface for testability.
type MenuStore interface {
	List(category string) []catalog.MenuItem
	Get(id string) (catalog.MenuItem, error)
}

// MenuHandler serves the customer-facing menu.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints. Expected at /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Response types ---

type menuItemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
	IsAvailable bool    `json:"is_available"`
	Rating      float64 `json:"rating,omitempty"`
}

// --- Handlers ---

// List returns the menu, optionally narrowed by ?category= and
// ?available=true.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	items := h.store.List(q.Get("category"))
	if q.Get("available") == "true" {
		filtered := items[:0]
		for _, it := range items {
			if it.Available {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	resp := make([]menuItemResponse, len(items))
	for i, it := range items {
		resp[i] = toMenuItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// --- Helpers ---

func toMenuItemResponse(it catalog.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Price:       money(it.Price),
		Description: it.Description,
		ImageURL:    it.ImageURL,
		Category:    it.Category,
		IsAvailable: it.Available,
		Rating:      it.Rating,
	}
}
