package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/meteoradar/internal/radar"
)

// DefaultTimeout bounds a single outbound request when the caller's client has none.
const DefaultTimeout = 10 * time.Second

var (
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// breakerSettings trips after five consecutive failures and probes again
// after two minutes. Interval is zero so closed-state counts survive the gap
// between polls, which is usually longer than any reset window.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(breakerSettings(name))
}

// doRequest executes a single GET through the circuit breaker. There are no
// retries: the next scheduled poll is the retry. Every failure is tagged as a
// network error. The caller closes the returned body.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, rawURL string) (*http.Response, error) {
	if client == nil {
		return nil, radar.NetworkError(errNoHTTPClient)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, radar.NetworkError(fmt.Errorf("create request: %w", err))
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode >= 500 {
			drainAndClose(resp)
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drainAndClose(resp)
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, radar.NetworkError(fmt.Errorf("%w: %v", errCircuitOpen, err))
		}
		return nil, radar.NetworkError(err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, radar.NetworkError(fmt.Errorf("unexpected result type from circuit breaker"))
	}
	return resp, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
