package datasource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Client sends upstream requests through a circuit breaker. It never
// retries: a failed request fails the lookup that issued it.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	userAgent  string
}

// NewClient creates a Client whose breaker opens after maxFailures
// consecutive upstream failures and half-opens again after cooldown.
func NewClient(httpClient *http.Client, name string, maxFailures uint32, cooldown time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up is not an upstream fault
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		httpClient: httpClient,
		breaker:    breaker,
		userAgent:  "city-weather/1.0",
	}
}

// State exposes the breaker state for health reporting
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Do executes req. 5xx and 429 answers count as breaker failures but are
// still returned to the caller so it can map them to a QueryError; transport
// failures come back as a *QueryError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})

	if resp != nil {
		// Status-level failure: hand the response back for mapping
		return resp, nil
	}
	if err != nil {
		return nil, classifyTransportError(req.Context(), err)
	}
	return resp, nil
}

func classifyTransportError(ctx context.Context, err error) *QueryError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewQueryError(ErrCodeUnavailable, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return AsQueryError(fmt.Errorf("%w: %v", ctxErr, err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewQueryError(ErrCodeTimeout, err)
	}
	return NewQueryError(ErrCodeNetwork, err)
}
