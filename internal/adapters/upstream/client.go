// Package upstream is the shared outbound HTTP path for the metadata and
// replay sources: request pacing, a circuit breaker and JSON decoding.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout      = 10 * time.Second
	defaultRPS          = 10
	defaultBurst        = 20
	defaultFailureRatio = 0.6
	defaultMinRequests  = 10
	defaultOpenTimeout  = 2 * time.Minute
	halfOpenRequests    = 3
	countsInterval      = time.Minute
	maxErrorBodyBytes   = 512
	userAgent           = "saberlens/1.0"
)

// Client performs paced, breaker-protected GET requests against one source.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	logger  logger.Logger

	timeout      time.Duration
	rps          float64
	burst        int
	failureRatio float64
	minRequests  uint32
	openTimeout  time.Duration
}

// New creates a client for the source called name.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:         name,
		timeout:      defaultTimeout,
		rps:          defaultRPS,
		burst:        defaultBurst,
		failureRatio: defaultFailureRatio,
		minRequests:  defaultMinRequests,
		openTimeout:  defaultOpenTimeout,
		logger:       logger.Get().Named("upstream").Named(name),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenRequests,
		Interval:    countsInterval,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= c.failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "circuit breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateBreakerState(name, stateToFloat(to))
		},
		// A confirmed absence is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	metrics.UpdateBreakerState(name, 0)

	return c
}

// Name returns the source name used in logs and metrics.
func (c *Client) Name() string { return c.name }

// GetJSON fetches url and decodes the body into v. A 404 returns ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	start := time.Now()
	body, err := c.get(ctx, url)
	metrics.RecordUpstreamLatency(c.name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordUpstreamRequest(c.name, outcome(err))
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		metrics.RecordUpstreamRequest(c.name, "decode_error")
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	metrics.RecordUpstreamRequest(c.name, "ok")
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.execute(ctx, url)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}
	return body, err
}

func (c *Client) execute(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return body, nil
}

func readBodyForError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(b)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBreakerOpen):
		return "rejected"
	case errors.Is(err, ErrStatus):
		return "status_error"
	case errors.Is(err, ErrRateLimited):
		return "cancelled"
	default:
		return "transport_error"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
