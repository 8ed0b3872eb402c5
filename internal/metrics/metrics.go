package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodcourt"

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	OrdersCompleted prometheus.Counter
	PlaceFailures   *prometheus.CounterVec
	PlaceDuration   prometheus.Histogram

	CompensationAttempts prometheus.Counter
	CompensationFailures prometheus.Counter
	ReconcilerCredits    *prometheus.CounterVec

	BreakerState *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders successfully placed.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled inside the cancellation window.",
		}),
		OrdersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_completed_total",
			Help:      "Orders marked complete by the restaurant.",
		}),
		PlaceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_place_failures_total",
			Help:      "Failed order placements by error kind.",
		}, []string{"kind"}),
		PlaceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_place_duration_seconds",
			Help:      "Latency of order placement.",
			Buckets:   prometheus.DefBuckets,
		}),
		CompensationAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_attempts_total",
			Help:      "Compensating wallet credits attempted.",
		}),
		CompensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_failures_total",
			Help:      "Compensating credits that exhausted their retry budget.",
		}),
		ReconcilerCredits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_credits_total",
			Help:      "Credits issued by the settlement reconciler.",
		}, []string{"reason"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per downstream (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.OrdersPlaced,
		m.OrdersCancelled,
		m.OrdersCompleted,
		m.PlaceFailures,
		m.PlaceDuration,
		m.CompensationAttempts,
		m.CompensationFailures,
		m.ReconcilerCredits,
		m.BreakerState,
	)
	return m
}

// NewUnregistered returns collectors bound to a private registry. Used by
// tests and by components constructed without a shared registry.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds.
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
