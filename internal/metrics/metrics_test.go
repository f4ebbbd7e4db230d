package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/enum"
	"github.com/orderin/api/internal/feed"
	"github.com/orderin/api/internal/metrics"
	"github.com/orderin/api/internal/order"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func loadedStore(t *testing.T, clk clock.Clock) *order.Store {
	t.Helper()
	s := order.NewStore(order.NewMemoryRepository(order.Baseline(clk.Now()), 0), order.WithClock(clk))
	require.NoError(t, s.LoadOrders(context.Background()))
	return s
}

// gauge finds a single sample by metric name and optional label pair.
func gauge(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" {
				return m.GetGauge().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestQueueCollector_BaselineCounts(t *testing.T) {
	clk := clock.NewFakeClock(now)
	m := metrics.New(loadedStore(t, clk), clk)
	reg := m.Registry()

	assert.Equal(t, 6.0, gauge(t, reg, "orderin_orders_active", "order_status", "RECEIVED"))
	assert.Equal(t, 4.0, gauge(t, reg, "orderin_orders_active", "order_status", "PREPARING"))
	assert.Equal(t, 6.0, gauge(t, reg, "orderin_orders_unpaid", "", ""))

	assert.Equal(t, 2.0, gauge(t, reg, "orderin_orders_active_by_urgency", "urgency", "critical"))
	assert.Equal(t, 1.0, gauge(t, reg, "orderin_orders_active_by_urgency", "urgency", "urgent"))
	assert.Equal(t, 1.0, gauge(t, reg, "orderin_orders_active_by_urgency", "urgency", "warning"))
	assert.Equal(t, 6.0, gauge(t, reg, "orderin_orders_active_by_urgency", "urgency", "normal"))
}

func TestQueueCollector_UrgencyAdvancesWithClock(t *testing.T) {
	clk := clock.NewFakeClock(now)
	m := metrics.New(loadedStore(t, clk), clk)

	clk.Advance(time.Hour)
	assert.Equal(t, 10.0, gauge(t, m.Registry(), "orderin_orders_active_by_urgency", "urgency", "critical"))
	assert.Equal(t, 0.0, gauge(t, m.Registry(), "orderin_orders_active_by_urgency", "urgency", "normal"))
}

func TestObserveOrderEvent(t *testing.T) {
	clk := clock.NewFakeClock(now)
	store := loadedStore(t, clk)
	m := metrics.New(nil, clk)
	cancel := store.Subscribe(m.ObserveOrderEvent)
	defer cancel()

	_, err := store.UpdateOrderStatus(context.Background(), "order_001", order.StatusPreparing)
	require.NoError(t, err)
	_, err = store.UpdatePaymentStatus(context.Background(), "order_001", order.PaymentPaid)
	require.NoError(t, err)
	// no-op, no event
	_, err = store.UpdatePaymentStatus(context.Background(), "order_001", order.PaymentPaid)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "orderin_order_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one label set (order.updated)")

	expected := `
# HELP orderin_order_updates_total Order updates by resulting order and payment status.
# TYPE orderin_order_updates_total counter
orderin_order_updates_total{order_status="PREPARING",payment_status="PAID"} 1
orderin_order_updates_total{order_status="PREPARING",payment_status="UNPAID"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "orderin_order_updates_total"))
}

func TestObserveFeed(t *testing.T) {
	m := metrics.New(nil, nil)

	m.ObserveFeed(feed.Result{Mode: enum.FeedModeIncremental, Injected: make([]order.Order, 3), Took: 10 * time.Millisecond})
	m.ObserveFeed(feed.Result{Mode: enum.FeedModeIncremental, Err: errors.New("boom")})

	expected := `
# HELP orderin_feed_injected_orders_total Synthetic orders injected by the feed synchronizer.
# TYPE orderin_feed_injected_orders_total counter
orderin_feed_injected_orders_total 3
# HELP orderin_feed_ticks_total Feed synchronizer steps by mode and result.
# TYPE orderin_feed_ticks_total counter
orderin_feed_ticks_total{mode="incremental",result="error"} 1
orderin_feed_ticks_total{mode="incremental",result="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"orderin_feed_injected_orders_total", "orderin_feed_ticks_total"))
}

func TestInstrumentAndHandler(t *testing.T) {
	m := metrics.New(nil, nil)

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/orders/abc", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), `orderin_http_requests_total{code="404",method="GET",route="/orders/{id}"} 1`)
}
