package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCircuitBreaker_TripsAfterThreshold verifies the breaker opens
// after exactly `threshold` consecutive failures, not before.
func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	b := New(3, time.Second)

	assert.True(t, b.Allow())
	b.Failure()
	assert.Equal(t, Closed, b.State())
	b.Failure()
	assert.Equal(t, Closed, b.State())
	b.Failure()
	assert.Equal(t, Open, b.State())
}

// TestCircuitBreaker_RejectsWhileOpen verifies Allow returns false for
// the entire cool-down window.
func TestCircuitBreaker_RejectsWhileOpen(t *testing.T) {
	fakeNow := time.Now()
	b := New(1, 10*time.Second)
	b.now = func() time.Time { return fakeNow }

	b.Failure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())

	fakeNow = fakeNow.Add(5 * time.Second)
	assert.False(t, b.Allow())
}

// TestCircuitBreaker_HalfOpenAdmitsOneProbe verifies exactly one call
// is let through once the cool-down elapses, and success closes it.
func TestCircuitBreaker_HalfOpenAdmitsOneProbe(t *testing.T) {
	fakeNow := time.Now()
	b := New(1, time.Second)
	b.now = func() time.Time { return fakeNow }

	b.Failure()
	fakeNow = fakeNow.Add(2 * time.Second)

	assert.True(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())
	assert.False(t, b.Allow(), "a second probe must not be admitted while one is in flight")

	b.Success()
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.Allow())
}

// TestCircuitBreaker_HalfOpenFailureReopens verifies a failed probe
// re-trips the breaker with a fresh cool-down.
func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	fakeNow := time.Now()
	b := New(1, time.Second)
	b.now = func() time.Time { return fakeNow }

	b.Failure()
	fakeNow = fakeNow.Add(2 * time.Second)
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

// TestCircuitBreaker_ThresholdClampedToOne verifies a non-positive
// threshold is treated as 1 rather than never tripping.
func TestCircuitBreaker_ThresholdClampedToOne(t *testing.T) {
	b := New(0, time.Second)
	b.Failure()
	assert.Equal(t, Open, b.State())
}
