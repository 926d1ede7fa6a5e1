package core

import "sync/atomic"

// DefaultSignalChannelCapacity is the default bound on DaemonContext's
// signal channel. SPEC_FULL.md leaves this configurable with a sane
// default; 16 matches the spec's suggestion.
const DefaultSignalChannelCapacity = 16

// DaemonContext is the per-run object passed to Daemon.Run. It carries a
// write-once-monotonic shutdown flag and a bounded channel of inbound
// signals. Term/Int/Quit always flip the flag in addition to best-effort
// channel delivery; other signals are channel-only and may be dropped
// when the channel is full.
type DaemonContext struct {
	shutdown atomic.Bool
	signals  chan Signal
}

// NewDaemonContext creates a context with the given signal channel
// capacity. A capacity of 0 falls back to DefaultSignalChannelCapacity.
func NewDaemonContext(capacity int) *DaemonContext {
	if capacity <= 0 {
		capacity = DefaultSignalChannelCapacity
	}
	return &DaemonContext{signals: make(chan Signal, capacity)}
}

// ShouldShutdown reports whether shutdown has been requested. Safe for
// concurrent use; a Daemon.Run implementation should poll this at least
// once per bounded unit of work.
func (c *DaemonContext) ShouldShutdown() bool {
	return c.shutdown.Load()
}

// Signals returns the channel a Daemon.Run implementation should drain
// for Hup/Usr1/Usr2 delivery. Closed once the context is retired.
func (c *DaemonContext) Signals() <-chan Signal {
	return c.signals
}

// Deliver routes an inbound signal into the context. Term/Int/Quit flip
// the shutdown flag unconditionally (the "stronger path" per
// SPEC_FULL.md §4.1) in addition to a best-effort, non-blocking send on
// the channel; other signals are channel-only and are dropped, not
// blocked on, when the channel is full.
func (c *DaemonContext) Deliver(sig Signal) {
	if sig.IsShutdownSignal() {
		c.shutdown.Store(true)
	}
	select {
	case c.signals <- sig:
	default:
		// Channel full: documented drop. Term/Int/Quit already took the
		// stronger path above, so nothing is lost for those.
	}
}

// RequestShutdown flips the shutdown flag directly, bypassing the
// signal channel. Used by the supervisor's own cancellation sequence.
func (c *DaemonContext) RequestShutdown() {
	c.shutdown.Store(true)
}

// Close closes the signal channel. Only the owner (the supervision
// task) should call this, after Run has returned.
func (c *DaemonContext) Close() {
	close(c.signals)
}
