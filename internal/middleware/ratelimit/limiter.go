package ratelimit

import "time"

// Policy controls how many requests an identifier may make per fixed window.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicy allows 10 requests per minute.
func DefaultPolicy() Policy {
	return Policy{MaxRequests: 10, Window: time.Minute}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxRequests <= 0 {
		p.MaxRequests = def.MaxRequests
	}
	if p.Window <= 0 {
		p.Window = def.Window
	}
	return p
}

// Result is the outcome of a single rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter applies a fixed-window policy on top of a CounterStore.
type Limiter struct {
	store  CounterStore
	policy Policy
}

// NewLimiter creates a limiter. Zero policy fields fall back to DefaultPolicy.
func NewLimiter(store CounterStore, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy.withDefaults()}
}

// Check records one request for the identifier and reports whether it is
// within the policy. Remaining never goes below zero.
func (l *Limiter) Check(identifier string) Result {
	count, resetAt := l.store.Hit(identifier, l.policy.Window)

	remaining := l.policy.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	resetIn := time.Until(resetAt)
	if resetIn < 0 {
		resetIn = 0
	}

	return Result{
		Allowed:   count <= l.policy.MaxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// StartPurging evicts expired windows from the store every interval until the
// returned stop function is called.
func (l *Limiter) StartPurging(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				l.store.Purge(time.Now())
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
