package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/etofusion/internal/metrics"
)

// fetcher wraps an HTTP client with exponential-backoff retries and a
// circuit breaker. One fetcher per adapter so a broken vendor trips its
// own breaker without affecting the others.
type fetcher struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	maxWait time.Duration
}

func newFetcher(name string, client *http.Client) *fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &fetcher{
		name:    name,
		client:  client,
		breaker: cb,
		maxWait: 30 * time.Second,
	}
}

// getJSON fetches url and returns the response body. Rate limits and 5xx
// are retried with exponential backoff; other failures are permanent.
// An open breaker fails fast without touching the network.
func (f *fetcher) getJSON(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	var body []byte
	operation := func() error {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
			}

			resp, err := f.client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("fetch: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, fmt.Errorf("retryable: status %d", resp.StatusCode)
			}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
				return nil, backoff.Permanent(&UnavailableError{
					Provider: f.name,
					Reason:   fmt.Sprintf("auth rejected: status %d: %s", resp.StatusCode, string(b)),
				})
			}
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
				return nil, backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
			}

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			return b, nil
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return backoff.Permanent(&UnavailableError{
					Provider: f.name,
					Reason:   "circuit breaker open",
					Err:      err,
				})
			}
			return err
		}
		body = result.([]byte)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.maxWait
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.ProviderAPICalls.WithLabelValues(f.name, "error").Inc()
		if IsUnavailable(err) {
			return nil, err
		}
		return nil, &UnavailableError{Provider: f.name, Reason: "request failed", Err: err}
	}

	metrics.ProviderAPICalls.WithLabelValues(f.name, "ok").Inc()
	metrics.ProviderAPILatency.WithLabelValues(f.name).Observe(time.Since(start).Seconds())
	return body, nil
}
