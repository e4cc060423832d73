// internal/pkg/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the storefront's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cartRecomputes    prometheus.Counter
	cartCleanupFails  prometheus.Counter
	insufficientStock prometheus.Counter
	likeToggles       *prometheus.CounterVec
}

// New registers the collectors on reg. A nil registerer yields a no-op Metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cartRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_recomputations_total",
			Help: "Cart subtotal recomputations.",
		}),
		cartCleanupFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_cleanup_failures_total",
			Help: "Failed best-effort cart cleanups after line removal.",
		}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_insufficient_stock_total",
			Help: "Cart writes rejected for insufficient stock.",
		}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "like_toggles_total",
			Help: "Like toggles by resulting action.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.cartRecomputes, m.cartCleanupFails, m.insufficientStock, m.likeToggles)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncCartRecompute() {
	if m == nil || m.cartRecomputes == nil {
		return
	}
	m.cartRecomputes.Inc()
}

func (m *Metrics) IncCartCleanupFailure() {
	if m == nil || m.cartCleanupFails == nil {
		return
	}
	m.cartCleanupFails.Inc()
}

func (m *Metrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncLikeToggle counts a toggle; liked reports the state after the toggle.
func (m *Metrics) IncLikeToggle(liked bool) {
	if m == nil || m.likeToggles == nil {
		return
	}
	action := "unlike"
	if liked {
		action = "like"
	}
	m.likeToggles.WithLabelValues(action).Inc()
}
