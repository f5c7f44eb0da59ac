package httpx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by every upstream unless overridden.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrServerError  = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected status code")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errBadBackoff   = errors.New("invalid backoff configuration")
)

// Upstream is one remote dependency guarded by retries and a circuit breaker.
type Upstream struct {
	name    string
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

// NewUpstream creates an Upstream with the default backoff.
func NewUpstream(name string, client *http.Client) *Upstream {
	return NewUpstreamWithBackoff(name, client, DefaultBackoff)
}

// NewUpstreamWithBackoff creates an Upstream with a custom backoff.
func NewUpstreamWithBackoff(name string, client *http.Client, backoff BackoffConfig) *Upstream {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Upstream{
		name:    name,
		client:  client,
		backoff: backoff,
		circuit: cb,
	}
}

// Get issues a GET for rawURL with retries, exponential backoff and the circuit breaker.
// The caller must close the returned body.
func (u *Upstream) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return u.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, rawURL, nil)
	})
}

// Do executes the request produced by buildRequest. buildRequest is invoked once
// per attempt so request bodies are never reused.
func (u *Upstream) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if u.client == nil {
		return nil, errNoHTTPClient
	}
	if u.backoff.MaxRetries < 0 || u.backoff.InitialInterval <= 0 {
		return nil, errBadBackoff
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := u.circuit.Execute(func() (interface{}, error) {
			resp, execErr := u.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, ErrRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, ErrServerError
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", ErrUnexpected, resp.StatusCode)
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %v", u.name, ErrCircuitOpen, err)
		}

		// A 4xx other than 429 will not improve on retry.
		if errors.Is(err, ErrUnexpected) {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}

		lastErr = err
		if attempt >= u.backoff.MaxRetries {
			return nil, fmt.Errorf("%s: %w", u.name, lastErr)
		}

		delay := u.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > u.backoff.MaxInterval && u.backoff.MaxInterval > 0 {
			delay = u.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
