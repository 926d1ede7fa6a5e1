// Package breaker implements the three-state failure gate shared by
// supervision and policy enforcement (SPEC_FULL.md §4.3, §4.7).
package breaker

import (
	"sync"
	"time"
)

// State is one of the three CircuitBreaker states.
type State int

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
	default:
		return "unknown"
	}
}

// CircuitBreaker gates calls after a run of consecutive failures.
//
//   - Closed: calls are forwarded normally; N consecutive failures trip
//     it to Open.
//   - Open: calls are rejected with ErrOpen; once CoolDown has elapsed
//     since tripping, the next Allow() call transitions to HalfOpen and
//     admits exactly one probe.
//   - HalfOpen: exactly one call is admitted; success closes the
//     breaker and resets counters, failure reopens it with a fresh
//     cool-down.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	coolDown  time.Duration

	state          State
	consecutiveErr int
	openedAt       time.Time
	probeInFlight  bool

	now func() time.Time
}

// New builds a CircuitBreaker that trips after `threshold` consecutive
// failures and stays Open for `coolDown` before allowing a HalfOpen
// probe.
func New(threshold int, coolDown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{threshold: threshold, coolDown: coolDown, now: time.Now}
}

// State returns the current state without mutating it.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. When it returns true in the
// Open state, the breaker has just transitioned to HalfOpen and the
// caller is the single admitted probe; the caller must report the
// outcome via Success or Failure exactly once.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) >= b.coolDown {
			b.state = HalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case HalfOpen:
		// Only one probe admitted at a time.
		return false
	default:
		return false
	}
}

// Success records a successful call.
func (b *CircuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Closed
		b.probeInFlight = false
	}
	b.consecutiveErr = 0
}

// Failure records a failed call, tripping or re-tripping the breaker as
// appropriate.
func (b *CircuitBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probeInFlight = false
		b.trip()
		return
	case Closed:
		b.consecutiveErr++
		if b.consecutiveErr >= b.threshold {
			b.trip()
		}
	}
}

func (b *CircuitBreaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.consecutiveErr = 0
}
