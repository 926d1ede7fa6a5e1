package core

import "context"

// Daemon is the extension point of the library: users implement it, and
// a Manager owns a set of daemons and drives each through its lifecycle.
//
// Init must fail fast on any misconfiguration and be idempotent if
// re-called on the same instance before Run. Run is long-running: it
// must periodically observe ctx.ShouldShutdown and drain ctx.Signals in
// a bounded manner, returning an ExitReason on voluntary exit. Shutdown
// releases resources and must respect the given timeout. HealthCheck
// must be fast and side-effect free. Metrics returns a live view of the
// daemon's metric block — callers must not mutate the returned value's
// counters directly.
type Daemon interface {
	ID() DaemonID
	Name() string

	Init(ctx context.Context, config *DaemonConfig) error
	Run(ctx context.Context, dctx *DaemonContext) ExitReason
	Shutdown(ctx context.Context) error
	HealthCheck() HealthStatus
	Metrics() *DaemonMetrics
}
