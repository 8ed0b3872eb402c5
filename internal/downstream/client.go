package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/metrics"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client issues GET requests to one collaborator service behind a circuit
// breaker. Each call is bounded by the configured timeout.
type Client struct {
	name       string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// New builds a client. A nil hc uses an otelhttp-instrumented default.
func New(name, baseURL string, timeout time.Duration, m *metrics.Metrics, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: hc,
		breaker:    newBreaker(name, m),
	}
}

// newBreaker opens after five consecutive failures. Only Unavailable
// errors count as failures, so not-found answers keep it closed.
func newBreaker(name string, m *metrics.Metrics) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, apperr.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
}

// Get returns the body of a 200 response. 404 maps to notFound, 5xx,
// transport errors, timeouts and an open breaker map to ErrUnavailable.
func (c *Client) Get(ctx context.Context, path string, notFound error) ([]byte, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "client"),
		zap.String("downstream", c.name),
		zap.String("path", path),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if reqID := logger.RequestIDFrom(ctx); reqID != "" {
			req.Header.Set("X-Request-ID", reqID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperr.Unavailable(c.name, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperr.Unavailable(c.name, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return data, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, notFound
		case resp.StatusCode >= 500:
			return nil, apperr.Unavailable(c.name, fmt.Errorf("status %d", resp.StatusCode))
		default:
			return nil, fmt.Errorf("%s: unexpected status %d", c.name, resp.StatusCode)
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = apperr.Unavailable(c.name, err)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Info("downstream entry not found")
		} else {
			log.Error("downstream request failed", zap.Error(err))
		}
		return nil, err
	}
	return body, nil
}

// GetJSON decodes the body of Get into dst.
func (c *Client) GetJSON(ctx context.Context, path string, notFound error, dst any) error {
	body, err := c.Get(ctx, path, notFound)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s%s: %w", c.name, path, err)
	}
	return nil
}
