package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// unhealthyAfterFailures is the number of consecutive failures after which
// an adapter is marked unhealthy.
const unhealthyAfterFailures = 3

// HTTPAdapter is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, retry logic, timeout handling, and health
// accounting.
//
// Concrete adapters (OpenAI, Anthropic) embed this struct and implement the
// Adapter interface methods on top of DoRequest/DoJSONRequest.
type HTTPAdapter struct {
	// config contains the adapter configuration
	config AdapterConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the adapter's health status
	health AdapterHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex

	// stopHealthCheck is closed to signal the health checker to stop
	stopHealthCheck chan struct{}

	// healthCheckStopped is closed when the health checker has stopped
	healthCheckStopped chan struct{}

	// healthCheckStarted records whether the background checker is running
	healthCheckStarted bool
}

// NewHTTPAdapter creates a new base HTTP adapter with connection pooling.
func NewHTTPAdapter(config AdapterConfig) *HTTPAdapter {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	return &HTTPAdapter{
		config: config,
		client: client,
		health: AdapterHealth{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}
}

// Name returns the adapter's configured name.
func (a *HTTPAdapter) Name() string {
	return a.config.Name
}

// Type returns the adapter's type.
func (a *HTTPAdapter) Type() string {
	return a.config.Type
}

// Config returns the adapter's configuration.
func (a *HTTPAdapter) Config() AdapterConfig {
	return a.config
}

// Healthy returns the current health status.
func (a *HTTPAdapter) Healthy() bool {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	return a.health.IsHealthy
}

// Health returns detailed health information.
func (a *HTTPAdapter) Health() AdapterHealth {
	a.healthMu.RLock()
	defer a.healthMu.RUnlock()
	return a.health
}

// updateHealth updates the adapter's health status.
// This is called after each health check or completed request cycle.
func (a *HTTPAdapter) updateHealth(success bool, err error) {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()

	a.health.LastCheck = time.Now()

	if success {
		a.health.IsHealthy = true
		a.health.ConsecutiveFailures = 0
		a.health.LastError = nil
		a.health.LastSuccessfulRequest = time.Now()
		return
	}

	a.health.ConsecutiveFailures++
	a.health.LastError = err

	if a.health.ConsecutiveFailures >= unhealthyAfterFailures {
		a.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", a.config.Name,
			"consecutive_failures", a.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// recordRequest records request counters.
func (a *HTTPAdapter) recordRequest(success bool) {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()

	a.health.TotalRequests++
	if !success {
		a.health.FailedRequests++
	}
}

// DoRequest performs an HTTP request with retry logic and timeout handling.
// Transient failures (network errors and 5xx responses) are retried with
// exponential backoff up to MaxRetries. Authentication failures, rate limits,
// and client errors are surfaced immediately as typed errors.
func (a *HTTPAdapter) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			slog.Debug("retrying request",
				"provider", a.config.Name,
				"attempt", attempt,
				"max_retries", a.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		slog.Debug("sending request to provider",
			"provider", a.config.Name,
			"method", method,
			"url", url,
		)

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			a.recordRequest(false)

			if ctx.Err() != nil {
				// Context cancelled or deadline exceeded, don't retry
				return nil, &TimeoutError{
					Provider: a.config.Name,
					Timeout:  a.config.Timeout,
				}
			}

			// Network error, retry
			slog.Warn("request failed, will retry",
				"provider", a.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			a.recordRequest(true)
			a.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			// Authentication error, don't retry
			a.recordRequest(false)
			a.updateHealth(false, fmt.Errorf("authentication failed"))
			return nil, &AuthError{
				Provider: a.config.Name,
				Message:  string(errorBody),
			}

		case http.StatusTooManyRequests:
			// Rate limit, don't retry here (resilience layer schedules it)
			a.recordRequest(false)
			return nil, &RateLimitError{
				Provider:   a.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest:
			// Bad request, don't retry
			a.recordRequest(false)
			return nil, &ProviderError{
				Provider:   a.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			// Server error (5xx) or other status, retry
			lastErr = &ProviderError{
				Provider:   a.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			a.recordRequest(false)

			slog.Warn("request returned error status, will retry",
				"provider", a.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	a.updateHealth(false, lastErr)
	return nil, lastErr
}

// DoJSONRequest performs a JSON request and decodes the response.
func (a *HTTPAdapter) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := a.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &DecodeError{
			Provider: a.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &DecodeError{
				Provider:    a.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close closes the HTTP client and stops the background health checker.
func (a *HTTPAdapter) Close() error {
	close(a.stopHealthCheck)

	if a.healthCheckStarted {
		select {
		case <-a.healthCheckStopped:
			slog.Debug("health checker stopped", "provider", a.config.Name)
		case <-time.After(5 * time.Second):
			slog.Warn("health checker did not stop in time", "provider", a.config.Name)
		}
	}

	a.client.CloseIdleConnections()

	slog.Info("provider adapter closed", "provider", a.config.Name)
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
