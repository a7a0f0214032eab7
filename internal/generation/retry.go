package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"agentrag/internal/logger"
)

// RetryConfig bounds the attempts made against the generation service.
// Delays grow exponentially (x2) from InitialDelay and are capped at MaxDelay.
type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Retryable additionally marks unmarked errors as transient. Errors wrapped
	// with retry.RetryableError are always retried; context errors never are.
	Retryable func(error) bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

func (c RetryConfig) backoff() retry.Backoff {
	b := retry.NewExponential(c.InitialDelay)
	b = retry.WithCappedDuration(c.MaxDelay, b)
	return retry.WithMaxRetries(uint64(c.MaxAttempts-1), b)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// retryWithBackoff calls fn until it succeeds, returns an error that is not
// marked retryable, runs out of attempts, or ctx ends.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	cfg = cfg.withDefaults()
	attempts := 0
	exhausted := false

	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil || isContextErr(err) {
			return err
		}
		if cfg.Retryable != nil && cfg.Retryable(err) {
			err = retry.RetryableError(err)
		}
		exhausted = attempts >= cfg.MaxAttempts
		logger.Debugw("generation attempt failed", "attempt", attempts, "error", err.Error())
		return err
	})
	if err == nil || isContextErr(err) {
		return err
	}
	if exhausted {
		logger.Warnw("generation retries exhausted", "attempts", attempts, "error", err.Error())
		return fmt.Errorf("max retry attempts (%d) reached: %w", cfg.MaxAttempts, err)
	}
	return err
}
