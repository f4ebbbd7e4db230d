package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/handler"
	"github.com/orderin/api/internal/order"
	"github.com/shopspring/decimal"
)

// --- Mock Refresher ---

type mockRefresher struct {
	refreshFn func(ctx context.Context) ([]order.Order, error)
}

func (m *mockRefresher) Refresh(ctx context.Context) ([]order.Order, error) {
	return m.refreshFn(ctx)
}

func ordersRouter(store handler.OrderStore, feed handler.Refresher, clk clock.Clock) http.Handler {
	h := handler.NewOrderHandler(store, feed, clk)
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		h.RegisterPublicRoutes(r)
		h.RegisterRoutes(r)
	})
	return r
}

func listOrders(t *testing.T, router http.Handler, query string) []interface{} {
	t.Helper()
	rr := doJSON(t, router, "GET", "/orders"+query, nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	if resp["loading"] != false {
		t.Errorf("loading: got %v, want false", resp["loading"])
	}
	return resp["orders"].([]interface{})
}

// --- Get tests ---

func TestOrderGet_IncludesUrgency(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	rr := doJSON(t, router, "GET", "/orders/order_old_001", nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)

	if resp["urgency"] != "critical" {
		t.Errorf("urgency: got %v, want critical", resp["urgency"])
	}
	if resp["elapsed_minutes"] != float64(90) {
		t.Errorf("elapsed_minutes: got %v, want 90", resp["elapsed_minutes"])
	}
	if resp["total_amount"] != "33000.00" {
		t.Errorf("total_amount: got %v, want 33000.00", resp["total_amount"])
	}
	if resp["next_status"] != "PREPARING" {
		t.Errorf("next_status: got %v, want PREPARING", resp["next_status"])
	}

	// urgency is computed per request
	clk.Advance(-80 * time.Minute)
	rr = doJSON(t, router, "GET", "/orders/order_old_001", nil)
	if got := decodeResponse(t, rr)["urgency"]; got != "normal" {
		t.Errorf("urgency after clock change: got %v, want normal", got)
	}
}

func TestOrderGet_CompletedHasNoNextStatus(t *testing.T) {
	store, clk := newOrderStore(t)
	rr := doJSON(t, ordersRouter(store, nil, clk), "GET", "/orders/order_003", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeResponse(t, rr)["next_status"]; got != nil {
		t.Errorf("next_status: got %v, want null", got)
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	store, clk := newOrderStore(t)
	rr := doJSON(t, ordersRouter(store, nil, clk), "GET", "/orders/nope", nil)
	expectStatus(t, rr, http.StatusNotFound)
}

// --- List tests ---

func TestOrderList_Filters(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	tests := []struct {
		query string
		want  int
	}{
		{"", 18},
		{"?active=true", 10},
		{"?status=COMPLETED", 8},
		{"?payment=UNPAID", 6},
		{"?active=true&payment=PAID", 4},
		{"?q=budi", 1},
		{"?q=0812345678", 18},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := len(listOrders(t, router, tt.query)); got != tt.want {
				t.Errorf("count: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOrderList_SortOldest(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	newest := listOrders(t, router, "?active=true")
	if id := newest[0].(map[string]interface{})["id"]; id != "order_old_001" {
		t.Errorf("insertion order head: got %v, want order_old_001", id)
	}

	oldest := listOrders(t, router, "?active=true&sort=oldest")
	first := oldest[0].(map[string]interface{})
	last := oldest[len(oldest)-1].(map[string]interface{})
	if first["id"] != "order_old_001" {
		t.Errorf("oldest first: got %v, want order_old_001", first["id"])
	}
	if last["id"] != "order_010" {
		t.Errorf("newest last: got %v, want order_010", last["id"])
	}
}

func TestOrderList_BadFilters(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	for _, q := range []string{"?status=DONE", "?payment=REFUNDED", "?sort=sideways"} {
		rr := doJSON(t, router, "GET", "/orders"+q, nil)
		expectStatus(t, rr, http.StatusBadRequest)
	}
}

// --- Update tests ---

func TestOrderUpdateStatus(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	rr := doJSON(t, router, "PATCH", "/orders/order_001/status", map[string]string{"status": "PREPARING"})
	expectStatus(t, rr, http.StatusOK)
	if got := decodeResponse(t, rr)["order_status"]; got != "PREPARING" {
		t.Errorf("order_status: got %v, want PREPARING", got)
	}

	rr = doJSON(t, router, "PATCH", "/orders/order_001/status", map[string]string{"status": "RECEIVED"})
	expectStatus(t, rr, http.StatusConflict)

	rr = doJSON(t, router, "PATCH", "/orders/order_001/status", map[string]string{"status": "SERVED"})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = doJSON(t, router, "PATCH", "/orders/nope/status", map[string]string{"status": "COMPLETED"})
	expectStatus(t, rr, http.StatusNotFound)

	o, _ := store.Get("order_001")
	if o.OrderStatus != order.StatusPreparing {
		t.Errorf("stored status: got %s, want PREPARING", o.OrderStatus)
	}
}

func TestOrderUpdatePayment(t *testing.T) {
	store, clk := newOrderStore(t)
	router := ordersRouter(store, nil, clk)

	rr := doJSON(t, router, "PATCH", "/orders/order_001/payment", map[string]string{"payment_status": "PAID"})
	expectStatus(t, rr, http.StatusOK)

	// PAID to PAID is a no-op
	rr = doJSON(t, router, "PATCH", "/orders/order_001/payment", map[string]string{"payment_status": "PAID"})
	expectStatus(t, rr, http.StatusOK)

	rr = doJSON(t, router, "PATCH", "/orders/order_001/payment", map[string]string{"payment_status": "UNPAID"})
	expectStatus(t, rr, http.StatusConflict)
}

// --- Refresh tests ---

func TestOrderRefresh(t *testing.T) {
	store, clk := newOrderStore(t)
	feed := &mockRefresher{
		refreshFn: func(context.Context) ([]order.Order, error) {
			return []order.Order{{
				ID:            "synthetic-1",
				OrderNumber:   116,
				TableNumber:   3,
				Lines:         []order.Line{{ProductID: "6", Name: "Es Teh Manis", Quantity: 1, UnitPrice: decimal.NewFromInt(8000)}},
				TotalAmount:   decimal.RequireFromString("8960"),
				PaymentStatus: order.PaymentUnpaid,
				OrderStatus:   order.StatusReceived,
				CreatedAt:     clk.Now(),
			}}, nil
		},
	}

	rr := doJSON(t, ordersRouter(store, feed, clk), "POST", "/orders/refresh", nil)
	expectStatus(t, rr, http.StatusOK)

	injected := decodeResponse(t, rr)["injected"].([]interface{})
	if len(injected) != 1 {
		t.Fatalf("injected: got %d, want 1", len(injected))
	}
	if got := injected[0].(map[string]interface{})["total_amount"]; got != "8960.00" {
		t.Errorf("total_amount: got %v, want 8960.00", got)
	}
}

func TestOrderRefresh_Errors(t *testing.T) {
	store, clk := newOrderStore(t)

	rr := doJSON(t, ordersRouter(store, nil, clk), "POST", "/orders/refresh", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)

	failing := &mockRefresher{
		refreshFn: func(context.Context) ([]order.Order, error) {
			return nil, apperr.Transient("load orders", errors.New("connection refused"))
		},
	}
	rr = doJSON(t, ordersRouter(store, failing, clk), "POST", "/orders/refresh", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
}
