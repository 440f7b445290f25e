// Package breaker provides a three-state circuit breaker used to protect
// calls to external AI and deploy providers. One breaker instance guards
// one provider; its state is shared by every concurrent call targeting that
// provider.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without invoking the
// wrapped action.
var ErrOpen = errors.New("circuit breaker is open")

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TransitionFunc observes state transitions. It is called while the breaker
// lock is not held.
type TransitionFunc func(name string, from, to State)

// CircuitBreaker wraps a fallible action with failure counting and fail-fast
// behavior. All transitions reset both counters.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
	onTransition     TransitionFunc

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	lastFailure  time.Time
}

// Option configures a breaker.
type Option func(*CircuitBreaker)

// WithTransitionFunc installs an observability callback invoked on every
// state transition.
func WithTransitionFunc(fn TransitionFunc) Option {
	return func(cb *CircuitBreaker) { cb.onTransition = fn }
}

// New creates a closed breaker. failureThreshold consecutive failures open
// it; after recoveryTimeout the next call probes in half-open state, and
// successThreshold consecutive successes close it again.
func New(name string, failureThreshold, successThreshold int, recoveryTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs action through the breaker. When the breaker is open and the
// recovery timeout has not elapsed it fails fast with ErrOpen without
// invoking action.
func (cb *CircuitBreaker) Execute(ctx context.Context, action func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := action(ctx)
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the breaker's provider name.
func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) < cb.recoveryTimeout {
			cb.mu.Unlock()
			return fmt.Errorf("%s: %w", cb.name, ErrOpen)
		}
		transition := cb.transitionLocked(StateHalfOpen)
		cb.mu.Unlock()
		transition()
		return nil
	}
	cb.mu.Unlock()
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	transition := func() {}
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			transition = cb.transitionLocked(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
	cb.mu.Unlock()
	transition()
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	cb.lastFailure = time.Now()
	transition := func() {}
	switch cb.state {
	case StateHalfOpen:
		// A single failure while probing reopens immediately.
		transition = cb.transitionLocked(StateOpen)
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			transition = cb.transitionLocked(StateOpen)
		}
	}
	cb.mu.Unlock()
	transition()
}

// transitionLocked moves to a new state, resets both counters, and returns
// a closure that fires the observer callback once the lock is released.
func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.state
	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	if cb.onTransition == nil || from == to {
		return func() {}
	}
	fn := cb.onTransition
	name := cb.name
	return func() { fn(name, from, to) }
}
