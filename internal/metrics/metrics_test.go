package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewUnregistered()

	m.OrdersPlaced.Inc()
	m.OrdersPlaced.Inc()
	m.PlaceFailures.WithLabelValues("insufficient_funds").Inc()
	m.ReconcilerCredits.WithLabelValues("orphan_debit").Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaceFailures.WithLabelValues("insufficient_funds")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReconcilerCredits.WithLabelValues("orphan_debit")))
}

func TestMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.OrdersCompleted.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foodcourt_orders_completed_total 1")
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)

	m := NewUnregistered()
	timer.ObserveDuration(m.PlaceDuration)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PlaceDuration))
}
