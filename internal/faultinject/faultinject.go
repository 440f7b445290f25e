// Package faultinject provides a provider-keyed registry of forced
// failures. It is consulted only by the provider-facing tool handlers and
// armed only by test and chaos harnesses; in production nothing is ever
// armed and every check is a no-op.
package faultinject

import (
	"context"
	"fmt"
	"sync"
)

// Kind of forced failure.
type Kind string

const (
	KindTimeout Kind = "timeout"
	KindHTTP500 Kind = "http_500"
	KindHTTP503 Kind = "http_503"
	KindNetwork Kind = "network_error"
)

// InjectedError is the error surfaced by an armed fault.
type InjectedError struct {
	Provider string
	Kind     Kind
}

func (e *InjectedError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: injected timeout: %v", e.Provider, context.DeadlineExceeded)
	case KindHTTP500:
		return fmt.Sprintf("%s: injected HTTP 500 internal server error", e.Provider)
	case KindHTTP503:
		return fmt.Sprintf("%s: injected HTTP 503 service unavailable", e.Provider)
	case KindNetwork:
		return fmt.Sprintf("%s: injected network error: connection refused", e.Provider)
	default:
		return fmt.Sprintf("%s: injected fault %s", e.Provider, e.Kind)
	}
}

// Unwrap exposes context.DeadlineExceeded for timeout faults so callers can
// branch with errors.Is.
func (e *InjectedError) Unwrap() error {
	if e.Kind == KindTimeout {
		return context.DeadlineExceeded
	}
	return nil
}

type fault struct {
	kind      Kind
	remaining int // 0 means fail until disarmed
}

// Registry holds armed faults keyed by provider name.
type Registry struct {
	mu     sync.Mutex
	faults map[string]*fault
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{faults: make(map[string]*fault)}
}

// Arm forces the next count calls against provider to fail with the given
// kind. count <= 0 arms the fault until Disarm is called.
func (r *Registry) Arm(provider string, kind Kind, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[provider] = &fault{kind: kind, remaining: count}
}

// Disarm removes any armed fault for provider.
func (r *Registry) Disarm(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.faults, provider)
}

// Check returns the forced error for provider if a fault is armed, nil
// otherwise. A counted fault disarms itself after its last firing.
func (r *Registry) Check(provider string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.faults[provider]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(r.faults, provider)
		}
	}
	return &InjectedError{Provider: provider, Kind: f.kind}
}

// Armed reports whether a fault is currently armed for provider.
func (r *Registry) Armed(provider string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.faults[provider]
	return ok
}
