package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// fakeClock drives the breaker cool-down without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New("cart", cfg)
	b.now = clock.now
	return b, clock
}

var errBackendDown = apperrors.New(apperrors.Unavailable, "backend down")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, "cart", b.Name())

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, Closed, b.State(), "a success resets the count")

	b.Failure()
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
	assert.True(t, apperrors.IsKind(b.Allow(), apperrors.Unavailable))
}

func TestBreakerHalfOpenProbes(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 2})
	b.Failure()

	clock.advance(9 * time.Second)
	require.ErrorIs(t, b.Allow(), ErrOpen)

	clock.advance(2 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())

	b.Success()
	assert.Equal(t, HalfOpen, b.State())
	b.Success()
	assert.Equal(t, Closed, b.State())
}

func TestBreakerReopensWhenProbeFails(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 3})
	b.Failure()
	clock.advance(2 * time.Second)
	require.NoError(t, b.Allow())

	b.Failure()

	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen, "cool-down restarts from the failed probe")
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Hour})
	b.Failure()
	require.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
	assert.NoError(t, b.Allow())
}

func TestExecuteCountsOnlyCollaboratorFaults(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Hour})

	bad := apperrors.New(apperrors.InvalidArgument, "unknown product")
	assert.ErrorIs(t, b.Execute(func() error { return bad }), bad)
	assert.ErrorIs(t, b.Execute(func() error { return context.Canceled }), context.Canceled)
	assert.Equal(t, Closed, b.State())

	assert.ErrorIs(t, b.Execute(func() error { return errBackendDown }), errBackendDown)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestExecuteWithResult(t *testing.T) {
	b, _ := newTestBreaker(CartConfig())

	n, err := ExecuteWithResult(b, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ExecuteWithResult(b, func() (int, error) { return 7, errBackendDown })
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestBreakerHookSeesTransitions(t *testing.T) {
	type change struct{ from, to State }
	var got []change

	b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	b.WithHook(func(name string, from, to State) {
		assert.Equal(t, "cart", name)
		got = append(got, change{from, to})
	})

	b.Failure()
	b.Failure()
	clock.advance(2 * time.Second)
	_ = b.Allow()
	b.Success()

	assert.Equal(t, []change{{Closed, Open}, {Open, HalfOpen}, {HalfOpen, Closed}}, got)
}

func TestBreakerConcurrentUse(t *testing.T) {
	b := New("catalog", Config{Threshold: 1000})
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(func() error {
				if i%2 == 0 {
					return nil
				}
				return errors.New("boom")
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, Closed, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestCollaboratorPresets(t *testing.T) {
	assert.Less(t, BrokerConfig().Threshold, CartConfig().Threshold)
	assert.Greater(t, CatalogConfig().ResetTimeout, CartConfig().ResetTimeout)
	assert.Equal(t, CartConfig(), Config{}.withDefaults())
}
