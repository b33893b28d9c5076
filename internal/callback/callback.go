// Package callback delivers batch completion notifications to the URL a
// trigger request supplied, retried with a fixed delay and protected by a
// circuit breaker so a dead receiver fails fast instead of burning the
// full retry budget on every subsequent batch.
package callback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/lxp-recflow/engine/internal/logging"
	"github.com/lxp-recflow/engine/internal/metrics"
)

// Payload is the JSON body POSTed to the caller-supplied callback URL on
// completion or failure of a batch.
type Payload struct {
	BatchID        string `json:"batch_id"`
	Status         string `json:"status"` // "COMPLETED" or "FAILED"
	ResultFilePath string `json:"result_file_path,omitempty"`
	UserCount      int    `json:"user_count,omitempty"`
	ProcessedAt    string `json:"processed_at,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	FailedAt       string `json:"failed_at,omitempty"`
}

// Client delivers completion callbacks over HTTP.
type Client struct {
	http       *http.Client
	cb         *gobreaker.CircuitBreaker[*http.Response]
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// Config tunes the breaker, retry policy, rate limiter, and HTTP client.
type Config struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	BreakerTrips  uint32  // consecutive failures before the breaker opens
	RatePerSecond float64 // callback deliveries allowed per second, across all batches
	RateBurst     int
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.BreakerTrips == 0 {
		cfg.BreakerTrips = 5
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "callback",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("callback circuit breaker state change")
		},
	})

	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		cb:         cb,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Send POSTs payload as JSON to url, retrying up to maxRetries times with a
// fixed retryDelay between attempts. The circuit breaker wraps each
// attempt: once it trips, Send fails immediately without attempting any
// further network calls until the breaker's cooldown elapses.
func (c *Client) Send(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("callback rate limiter: %w", err)
		}

		_, err := c.cb.Execute(func() (*http.Response, error) {
			return c.post(ctx, url, body)
		})
		if err == nil {
			metrics.CallbackAttempts.WithLabelValues("delivered").Inc()
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CallbackAttempts.WithLabelValues("circuit_open").Inc()
			return fmt.Errorf("callback circuit open: %w", err)
		}

		lastErr = err
		metrics.CallbackAttempts.WithLabelValues("retried").Inc()
		logging.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("url", url).
			Msg("callback delivery attempt failed")

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	metrics.CallbackAttempts.WithLabelValues("failed").Inc()
	return fmt.Errorf("callback delivery failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("callback receiver returned status %d", resp.StatusCode)
	}
	return resp, nil
}
