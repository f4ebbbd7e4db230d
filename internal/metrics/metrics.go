// Package metrics exposes order engine health on a Prometheus registry.
package metrics

import (
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/feed"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/urgency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderin"

// OrderSource is the slice of the order store read at scrape time.
// Satisfied by *order.Store.
type OrderSource interface {
	ListOrders(preds ...order.Predicate) iter.Seq[order.Order]
}

type Metrics struct {
	registry *prometheus.Registry

	orderEvents  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	feedTicks    *prometheus.CounterVec
	feedInjected prometheus.Counter
	feedDuration prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry. src and clk feed the
// scrape-time urgency gauges; src may be nil.
func New(src OrderSource, clk clock.Clock) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		orderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_total",
			Help:      "Order store events by type.",
		}, []string{"type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_updates_total",
			Help:      "Order updates by resulting order and payment status.",
		}, []string{"order_status", "payment_status"}),
		feedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_total",
			Help:      "Feed synchronizer steps by mode and result.",
		}, []string{"mode", "result"}),
		feedInjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "injected_orders_total",
			Help:      "Synthetic orders injected by the feed synchronizer.",
		}),
		feedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "tick_duration_seconds",
			Help:      "Duration of feed synchronizer steps.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.orderEvents, m.transitions,
		m.feedTicks, m.feedInjected, m.feedDuration,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if src != nil {
		if clk == nil {
			clk = clock.System()
		}
		reg.MustRegister(&queueCollector{src: src, clock: clk})
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOrderEvent is registered with order.Store.Subscribe.
func (m *Metrics) ObserveOrderEvent(e order.Event) {
	m.orderEvents.WithLabelValues(string(e.Type)).Inc()
	if e.Type == order.EventUpdated {
		m.transitions.WithLabelValues(string(e.Order.OrderStatus), string(e.Order.PaymentStatus)).Inc()
	}
}

// ObserveFeed is passed to feed.WithObserver.
func (m *Metrics) ObserveFeed(r feed.Result) {
	result := "ok"
	if r.Err != nil {
		result = "error"
	}
	m.feedTicks.WithLabelValues(r.Mode, result).Inc()
	m.feedInjected.Add(float64(len(r.Injected)))
	m.feedDuration.Observe(r.Took.Seconds())
}

// Instrument records request counts and latency keyed by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

var (
	activeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "orders", "active"),
		"Orders not yet completed, by order status.",
		[]string{"order_status"}, nil)
	urgencyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "orders", "active_by_urgency"),
		"Active orders by urgency level at scrape time.",
		[]string{"urgency"}, nil)
	unpaidDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "orders", "unpaid"),
		"Orders awaiting payment.",
		nil, nil)
)

// queueCollector derives queue gauges from the store on every scrape, since
// urgency changes with time alone.
type queueCollector struct {
	src   OrderSource
	clock clock.Clock
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- activeDesc
	ch <- urgencyDesc
	ch <- unpaidDesc
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	now := c.clock.Now()
	byStatus := map[order.Status]int{order.StatusReceived: 0, order.StatusPreparing: 0}
	byLevel := map[urgency.Level]int{urgency.Normal: 0, urgency.Warning: 0, urgency.Urgent: 0, urgency.Critical: 0}
	unpaid := 0

	for o := range c.src.ListOrders() {
		if o.PaymentStatus == order.PaymentUnpaid {
			unpaid++
		}
		if o.OrderStatus == order.StatusCompleted {
			continue
		}
		byStatus[o.OrderStatus]++
		byLevel[urgency.Classify(o.CreatedAt, now)]++
	}

	for s, n := range byStatus {
		ch <- prometheus.MustNewConstMetric(activeDesc, prometheus.GaugeValue, float64(n), string(s))
	}
	for l, n := range byLevel {
		ch <- prometheus.MustNewConstMetric(urgencyDesc, prometheus.GaugeValue, float64(n), string(l))
	}
	ch <- prometheus.MustNewConstMetric(unpaidDesc, prometheus.GaugeValue, float64(unpaid))
}
