// Package resilience guards calls to the ordering backend and the credential
// broker with a circuit breaker and bounded retries.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
)

// State is the breaker position. Values are exported as the breaker gauge.
type State uint32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned without calling the collaborator while the breaker
// fails fast.
var ErrOpen = apperrors.New(apperrors.Unavailable, "circuit breaker open")

// Breaker trips after consecutive collaborator failures. Each collaborator
// (broker, catalog, cart) owns one named breaker.
type Breaker struct {
	name     string
	cfg      Config
	now      func() time.Time
	onChange func(name string, from, to State)

	state    atomic.Uint32
	failures atomic.Int32
	probes   atomic.Int32 // successes while half-open
	openedAt atomic.Int64 // unix nano of the last counted failure
}

// New creates a breaker for the named collaborator.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
	b.state.Store(uint32(Closed))
	return b
}

func (b *Breaker) Name() string { return b.name }

// WithHook registers a transition callback, used for the breaker gauge.
func (b *Breaker) WithHook(fn func(name string, from, to State)) *Breaker {
	b.onChange = fn
	return b
}

// Allow reports ErrOpen while the breaker is open and the cool-down has not
// elapsed. After the cool-down the breaker lets probes through half-open.
func (b *Breaker) Allow() error {
	if b.State() != Open {
		return nil
	}
	if b.now().Sub(time.Unix(0, b.openedAt.Load())) < b.cfg.ResetTimeout {
		return ErrOpen
	}
	b.transition(HalfOpen)
	return nil
}

func (b *Breaker) Success() {
	switch b.State() {
	case Closed:
		b.failures.Store(0)
	case HalfOpen:
		if b.probes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(Closed)
		}
	}
}

func (b *Breaker) Failure() {
	b.openedAt.Store(b.now().UnixNano())
	n := b.failures.Add(1)
	switch b.State() {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if n >= int32(b.cfg.Threshold) {
			b.transition(Open)
		}
	}
}

func (b *Breaker) State() State { return State(b.state.Load()) }

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() { b.transition(Closed) }

// Execute runs fn unless the breaker is open. Only collaborator faults are
// counted; see countsAsFailure.
func (b *Breaker) Execute(fn func() error) error {
	_, err := ExecuteWithResult(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// ExecuteWithResult is Execute for calls that return a value.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn()
	switch {
	case err == nil:
		b.Success()
		return v, nil
	case countsAsFailure(err):
		b.Failure()
	}
	return zero, err
}

// countsAsFailure excludes errors the caller caused: a cancelled request or a
// rejected argument says nothing about the collaborator's health.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !apperrors.IsKind(err, apperrors.InvalidArgument)
}

func (b *Breaker) transition(to State) {
	from := State(b.state.Swap(uint32(to)))
	if from == to {
		return
	}
	b.probes.Store(0)
	if to == Closed {
		b.failures.Store(0)
	}

	log := slog.With("breaker", b.name, "from", from.String(), "to", to.String())
	if to == Open {
		log.Warn("breaker opened", "failures", b.failures.Load())
	} else {
		log.Info("breaker state changed")
	}
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
