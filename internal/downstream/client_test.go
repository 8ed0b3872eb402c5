package downstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThingNotFound = apperr.Wrap(apperr.ErrNotFound, "thing not found")

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := metrics.NewUnregistered()
	return New("things", srv.URL+"/", 100*time.Millisecond, m, srv.Client()), m
}

func TestClient_Get(t *testing.T) {
	t.Run("Success forwards request id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/things/1", r.URL.Path)
			assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
			_, _ = w.Write([]byte(`ok`))
		})

		ctx := logger.WithRequestID(context.Background(), "req-1")
		body, err := c.Get(ctx, "/things/1", errThingNotFound)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("NotFound", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := c.Get(context.Background(), "/things/1", errThingNotFound)
		assert.ErrorIs(t, err, errThingNotFound)
	})

	t.Run("ServerError", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := c.Get(context.Background(), "/things/1", errThingNotFound)
		assert.ErrorIs(t, err, apperr.ErrUnavailable)
	})

	t.Run("Unexpected client error", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		_, err := c.Get(context.Background(), "/things/1", errThingNotFound)
		assert.EqualError(t, err, "things: unexpected status 418")
		assert.False(t, errors.Is(err, apperr.ErrUnavailable))
	})

	t.Run("Timeout", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		})

		start := time.Now()
		_, err := c.Get(context.Background(), "/things/1", errThingNotFound)
		assert.ErrorIs(t, err, apperr.ErrUnavailable)
		assert.Less(t, time.Since(start), 900*time.Millisecond)
	})
}

func TestClient_GetJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`{`))
			return
		}
		_, _ = w.Write([]byte(`{"id":5}`))
	})

	var dst struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/good", errThingNotFound, &dst))
	assert.Equal(t, int64(5), dst.ID)

	err := c.GetJSON(context.Background(), "/bad", errThingNotFound, &dst)
	assert.ErrorContains(t, err, "decode things/bad")
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), "/x", errThingNotFound)
		require.ErrorIs(t, err, apperr.ErrUnavailable)
	}

	_, err := c.Get(context.Background(), "/x", errThingNotFound)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("things")))
}

func TestClient_NotFoundKeepsBreakerClosed(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 8; i++ {
		_, err := c.Get(context.Background(), "/x", errThingNotFound)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	}
	assert.Equal(t, int32(8), hits.Load())
}
