package resilience

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

func quickRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRetry(t *testing.T) {
	transient := apperrors.New(apperrors.Unavailable, "502 from backend")
	final := apperrors.New(apperrors.InvalidArgument, "unknown product")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"first try", 0, nil, 1, nil},
		{"recovers", 2, transient, 3, nil},
		{"exhausted", 10, transient, 3, transient},
		{"final error", 10, final, 1, final},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), quickRetry(2), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := Retry(ctx, cfg, func() error {
		calls++
		cancel()
		return apperrors.New(apperrors.RateLimited, "busy")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", apperrors.New(apperrors.Unavailable, "502"), true},
		{"rate limited", apperrors.New(apperrors.RateLimited, "429"), true},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"credential", apperrors.New(apperrors.CredentialDenied, "401"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("bad json"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(tt.err), tt.name)
	}
}

func TestRetryConfigDefaults(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()
	def := ConnectRetryConfig()

	assert.Equal(t, def.MaxRetries, cfg.MaxRetries)
	assert.Equal(t, def.BaseDelay, cfg.BaseDelay)
	assert.Equal(t, def.MaxDelay, cfg.MaxDelay)
	assert.NotNil(t, cfg.IsRetryable)
}

func TestDelayDoublesUpToMax(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, cfg.delay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.delay(1))
	assert.Equal(t, 300*time.Millisecond, cfg.delay(2))
	assert.Equal(t, 300*time.Millisecond, cfg.delay(40))
}

func TestDelayJitterStaysInBand(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: time.Second, JitterFactor: 0.2}
	for range 50 {
		d := cfg.delay(0)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestCallRetriesThroughBreaker(t *testing.T) {
	b := New("catalog", Config{Threshold: 10})
	calls := 0

	got, err := Call(context.Background(), b, quickRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", apperrors.New(apperrors.Unavailable, "flaky")
		}
		return "menu", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "menu", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, Closed, b.State())
}

func TestCallStopsWhenBreakerOpens(t *testing.T) {
	b := New("broker", Config{Threshold: 1, ResetTimeout: time.Hour})
	calls := 0

	_, err := Call(context.Background(), b, quickRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, apperrors.New(apperrors.Unavailable, "down")
	})

	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 1, calls)
}
