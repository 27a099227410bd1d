package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/vroomie/internal/metrics"
)

// ErrExhausted reports that every configured model identifier failed.
var ErrExhausted = errors.New("all models exhausted")

// Caller tries an ordered list of model identifiers against a Provider until
// one succeeds. There is no retry of the same identifier and no backoff
// between identifiers: selecting a different model is itself the fallback.
type Caller struct {
	provider Provider
	models   []string
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewCaller creates a failover caller over the given model priority list.
// timeout bounds each individual model attempt; zero means unbounded.
// metrics may be nil.
func NewCaller(provider Provider, models []string, timeout time.Duration, mc *metrics.Collector, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		provider: provider,
		models:   models,
		timeout:  timeout,
		metrics:  mc,
		logger:   logger,
	}
}

// Generate tries each configured model in priority order and returns the
// first successful output. When every model fails it returns an error
// matching ErrExhausted that wraps the last provider error. Provider
// failures never propagate raw; the caller's owner decides how to notify
// the user.
func (c *Caller) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, model := range c.models {
		text, err := c.generateOnce(ctx, model, prompt)
		if err != nil {
			lastErr = err
			c.metrics.RecordModelAttempt(model, false)
			c.logger.Warn("model failed", "model", model, "error", err)

			// A cancelled parent context means nothing further can succeed.
			if ctx.Err() != nil {
				break
			}
			continue
		}

		c.metrics.RecordModelAttempt(model, true)
		return text, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// generateOnce runs a single bounded model attempt.
func (c *Caller) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.provider.Generate(ctx, model, prompt)
	c.metrics.RecordTiming(metrics.OpGenerate, time.Since(start))

	return text, err
}

// Models returns the configured priority list.
func (c *Caller) Models() []string {
	return c.models
}
