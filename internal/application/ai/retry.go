package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/automaton-tod/internal/domain/ai"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration // doubles each retry
	MaxBackoff     time.Duration
}

// DefaultRetryConfig gives five attempts with 1s, 2s, 4s, 8s waits.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     4,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// Backoff returns the wait before retry number attempt+1: initial * 2^attempt, capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if c.MaxBackoff > 0 && d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryingClient decorates a domain.Client with exponential backoff on transient errors.
// Fatal errors are returned on the first occurrence.
type RetryingClient struct {
	next   domain.Client
	cfg    RetryConfig
	logger *zap.Logger
	sleep  Sleeper
}

func NewRetryingClient(next domain.Client, cfg RetryConfig, logger *zap.Logger) *RetryingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &RetryingClient{next: next, cfg: cfg, logger: logger, sleep: sleepContext}
}

// WithSleeper swaps the wait function, letting tests run without real delays.
func (c *RetryingClient) WithSleeper(s Sleeper) *RetryingClient {
	c.sleep = s
	return c
}

func (c *RetryingClient) Complete(ctx context.Context, req domain.Request) (string, error) {
	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := c.next.Complete(ctx, req)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("llm call succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return out, nil
		}
		if !domain.IsTransient(err) {
			return "", err
		}

		lastErr = err
		c.logger.Warn("llm call attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt == attempts-1 {
			break
		}

		wait := c.cfg.Backoff(attempt)
		c.logger.Info("retrying llm call", zap.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempts, lastErr)
}
