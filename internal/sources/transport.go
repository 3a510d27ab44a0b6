package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/paperscope/paperscope/pkg/models"
)

const (
	defaultHTTPTimeout = 20 * time.Second
	defaultMaxRetries  = 3
	baseBackoff        = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second

	// maxResponseBytes bounds provider payloads.
	maxResponseBytes = 8 << 20
)

// transport wraps an HTTP client with per-provider retry, exponential
// backoff, and a circuit breaker. Each adapter owns one instance.
type transport struct {
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	source     models.DiscoverySource
	apiKey     string
	maxRetries int
}

func newTransport(source models.DiscoverySource, apiKey string, timeout time.Duration, maxRetries int) *transport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(source),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state change")
		},
	})

	return &transport{
		client:     &http.Client{Timeout: timeout},
		breaker:    breaker,
		source:     source,
		apiKey:     apiKey,
		maxRetries: maxRetries,
	}
}

// getJSON issues a GET and decodes the body into out. Retries with
// exponential backoff on connection errors and 5xx responses; 4xx
// responses fail immediately (the request will not get better).
func (t *transport) getJSON(ctx context.Context, url string, out any) error {
	return t.doJSON(ctx, http.MethodGet, url, nil, out)
}

// postJSON issues a POST with a JSON body and decodes the response.
func (t *transport) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return malformed(t.source, fmt.Errorf("encode request: %w", err))
	}
	return t.doJSON(ctx, http.MethodPost, url, payload, out)
}

func (t *transport) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return &SourceError{Source: t.source, Kind: models.ErrKindTimeout, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		data, retryable, err := t.attempt(ctx, method, url, body)
		if err == nil {
			if decodeErr := json.Unmarshal(data, out); decodeErr != nil {
				return malformed(t.source, fmt.Errorf("decode response: %w", decodeErr))
			}
			return nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return &SourceError{Source: t.source, Kind: models.ErrKindTimeout, Err: ctx.Err()}
		}
		if !retryable {
			break
		}
		log.Debug().
			Str("provider", string(t.source)).
			Int("attempt", attempt+1).
			Err(err).
			Msg("Provider request failed, retrying")
	}
	return unavailable(t.source, lastErr)
}

// attempt performs one request through the circuit breaker. The second
// return value reports whether the failure is retryable.
func (t *transport) attempt(ctx context.Context, method, url string, body []byte) ([]byte, bool, error) {
	result, err := t.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if t.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+t.apiKey)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &httpStatusError{status: resp.StatusCode}
		}
		return data, nil
	})
	if err != nil {
		if statusErr, ok := err.(*httpStatusError); ok {
			return nil, statusErr.status >= 500, err
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			// Breaker open: do not burn the retry budget spinning.
			return nil, false, err
		}
		return nil, true, err
	}
	return result.([]byte), false, nil
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}
