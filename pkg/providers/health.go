package providers

import (
	"context"
	"log/slog"
	"time"
)

// StartHealthChecker starts a background goroutine that periodically checks
// the adapter's health. It runs until the adapter is closed or the context
// is cancelled, and backs off exponentially while the adapter is unhealthy
// to reduce load on a struggling provider.
func (a *HTTPAdapter) StartHealthChecker(ctx context.Context) {
	a.healthCheckStarted = true
	go a.runHealthChecker(ctx)
}

// runHealthChecker is the main health checking loop.
func (a *HTTPAdapter) runHealthChecker(ctx context.Context) {
	defer close(a.healthCheckStopped)

	interval := a.config.HealthCheckInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("health checker started",
		"provider", a.config.Name,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("health checker stopped (context cancelled)", "provider", a.config.Name)
			return

		case <-a.stopHealthCheck:
			slog.Debug("health checker stopped (adapter closed)", "provider", a.config.Name)
			return

		case <-ticker.C:
			a.performHealthCheck(ctx)

			if !a.Healthy() {
				health := a.Health()
				backoffInterval := checkBackoff(health.ConsecutiveFailures, interval)
				ticker.Reset(backoffInterval)

				slog.Debug("health check backoff",
					"provider", a.config.Name,
					"consecutive_failures", health.ConsecutiveFailures,
					"next_check_in", backoffInterval,
				)
			} else {
				ticker.Reset(interval)
			}
		}
	}
}

// performHealthCheck executes a single health check.
func (a *HTTPAdapter) performHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := a.healthCheckImpl(checkCtx)
	latency := time.Since(start)

	if err != nil {
		a.updateHealth(false, err)
		slog.Error("health check failed",
			"provider", a.config.Name,
			"error", err,
			"latency", latency,
		)
		return
	}

	previousFailures := a.Health().ConsecutiveFailures
	a.updateHealth(true, nil)
	slog.Debug("health check passed",
		"provider", a.config.Name,
		"latency", latency,
	)

	if previousFailures > 0 {
		slog.Info("provider marked healthy",
			"provider", a.config.Name,
			"previous_failures", previousFailures,
		)
	}
}

// healthCheckImpl performs the actual health check: a lightweight GET against
// the base URL to verify the provider is reachable.
func (a *HTTPAdapter) healthCheckImpl(ctx context.Context) error {
	headers := make(map[string]string)
	if a.config.APIKey != "" {
		// Generic bearer auth; specific adapters override HealthCheck when
		// their provider uses a different header.
		headers["Authorization"] = "Bearer " + a.config.APIKey
	}

	resp, err := a.DoRequest(ctx, "GET", a.config.BaseURL, nil, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

// checkBackoff calculates the health check interval based on consecutive
// failures. Exponential up to 10x the base interval, capped at 5 minutes.
func checkBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	multiplier := 1 << uint(consecutiveFailures)
	if multiplier > 10 {
		multiplier = 10
	}

	backoff := baseInterval * time.Duration(multiplier)

	maxBackoff := 5 * time.Minute
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}

// HealthCheck performs a synchronous health check (part of the Adapter
// interface). StartHealthChecker runs the same probe periodically.
func (a *HTTPAdapter) HealthCheck(ctx context.Context) error {
	return a.healthCheckImpl(ctx)
}
