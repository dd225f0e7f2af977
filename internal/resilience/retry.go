package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// RetryConfig bounds retries of a collaborator call. Zero fields take the
// connect-path values from ConnectRetryConfig.
type RetryConfig struct {
	MaxRetries   int // retries after the first attempt
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // fraction of the delay spread around it
	IsRetryable  func(error) bool
}

// ConnectRetryConfig is used for calls a user is waiting on while a session
// connects or a tool runs: two quick retries.
func ConnectRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		BaseDelay:    250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		JitterFactor: 0.2,
		IsRetryable:  IsRetryable,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := ConnectRetryConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsRetryable
	}
	return c
}

// IsRetryable accepts transient collaborator faults and network errors.
// Cancellation and deadlines are final.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case apperrors.IsRetryable(err):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retry calls fn until it succeeds, returns a final error, or the retries
// run out. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries || !cfg.IsRetryable(err) {
			return err
		}

		wait := cfg.delay(attempt)
		slog.DebugContext(ctx, "retrying collaborator call", "attempt", attempt+1, "wait", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay doubles BaseDelay per attempt up to MaxDelay and spreads it by
// JitterFactor.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := min(c.BaseDelay<<min(attempt, 16), c.MaxDelay)
	if d <= 0 {
		d = c.MaxDelay
	}
	if c.JitterFactor == 0 {
		return d
	}
	spread := float64(d) * c.JitterFactor
	return d + time.Duration(spread*(rand.Float64()-0.5))
}

// Call runs fn through the breaker with retries. A breaker that opens
// mid-way ends the loop with ErrOpen.
func Call[T any](ctx context.Context, b *Breaker, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	retryable := cfg.IsRetryable
	cfg.IsRetryable = func(err error) bool {
		return !errors.Is(err, ErrOpen) && retryable(err)
	}

	var out T
	err := Retry(ctx, cfg, func() error {
		v, err := ExecuteWithResult(b, func() (T, error) { return fn(ctx) })
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
