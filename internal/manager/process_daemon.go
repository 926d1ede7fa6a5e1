package manager

import (
	"context"
	"sync"
	"time"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// pollInterval is how often ProcessDaemon.Run asks its adapter whether
// the backend still considers the handle alive.
const pollInterval = 500 * time.Millisecond

// ProcessDaemon adapts an external binary, described entirely by a
// DaemonConfig, into a core.Daemon by delegating spawn/signal/status to
// a platform.Adapter. It is what cmd/duende registers for every daemon
// config loaded from its --config directory: users who want in-process Go daemons
// implement core.Daemon directly instead.
type ProcessDaemon struct {
	id      core.DaemonID
	name    string
	adapter platform.Adapter
	metrics *core.DaemonMetrics

	mu     sync.Mutex
	handle *core.DaemonHandle
}

// NewProcessDaemon builds a ProcessDaemon bound to adapter, named name,
// with a fresh random identity.
func NewProcessDaemon(name string, adapter platform.Adapter) *ProcessDaemon {
	return &ProcessDaemon{
		id:      core.NewDaemonID(),
		name:    name,
		adapter: adapter,
		metrics: core.NewDaemonMetrics(),
	}
}

func (p *ProcessDaemon) ID() core.DaemonID { return p.id }
func (p *ProcessDaemon) Name() string      { return p.name }

// Init spawns the configured binary through the adapter and stores the
// resulting handle for Run/Handle to use.
func (p *ProcessDaemon) Init(ctx context.Context, config *core.DaemonConfig) error {
	handle, err := p.adapter.Spawn(ctx, config)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.handle = &handle
	p.mu.Unlock()
	return nil
}

// Handle implements the manager's handleProvider so Signal forwarding
// reaches the backend even when Run itself is blocked polling.
func (p *ProcessDaemon) Handle() (core.DaemonHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return core.DaemonHandle{}, false
	}
	return *p.handle, true
}

// Run polls the adapter's Status until the backend reports the process
// no longer alive or ctx is cancelled. Once the cooperative context asks
// for shutdown it signals Term once and keeps polling until the backend
// reports a terminal status.
func (p *ProcessDaemon) Run(ctx context.Context, dctx *core.DaemonContext) core.ExitReason {
	handle, ok := p.Handle()
	if !ok {
		return core.ExitReason{Kind: core.ExitError, Detail: "process daemon has no handle", FailedAt: time.Now()}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	requestedShutdown := false
	for {
		select {
		case <-ctx.Done():
			return core.ExitReason{Kind: core.ExitGraceful, FailedAt: time.Now()}
		case sig, open := <-dctx.Signals():
			if open {
				_ = p.adapter.Signal(ctx, handle, sig)
			}
		case <-ticker.C:
			if dctx.ShouldShutdown() && !requestedShutdown {
				requestedShutdown = true
				_ = p.adapter.Signal(ctx, handle, core.SigTerm)
			}
			status, err := p.adapter.Status(ctx, handle)
			if err != nil {
				return core.ExitReason{Kind: core.ExitError, Detail: err.Error(), FailedAt: time.Now()}
			}
			if status.IsTerminal() {
				if requestedShutdown {
					return core.ExitReason{Kind: core.ExitGraceful, FailedAt: time.Now()}
				}
				return core.ExitReason{Kind: core.ExitSignal, Signal: core.SigKill, FailedAt: time.Now()}
			}
		}
	}
}

// Shutdown reaps the adapter-side resources associated with the handle.
func (p *ProcessDaemon) Shutdown(ctx context.Context) error {
	handle, ok := p.Handle()
	if !ok {
		return nil
	}
	return p.adapter.Reap(ctx, handle)
}

// HealthCheck reports healthy whenever the adapter still considers the
// handle alive; it does not attempt a deeper application-level check
// since ProcessDaemon knows nothing about the binary's protocol.
func (p *ProcessDaemon) HealthCheck() core.HealthStatus {
	handle, ok := p.Handle()
	if !ok {
		return core.Unhealthy("no handle", 0)
	}
	start := time.Now()
	status, err := p.adapter.Status(context.Background(), handle)
	latency := time.Since(start)
	if err != nil {
		return core.Unhealthy(err.Error(), latency)
	}
	if status.IsActive() {
		return core.Healthy(5, latency)
	}
	return core.Degraded(status.String(), latency)
}

func (p *ProcessDaemon) Metrics() *core.DaemonMetrics { return p.metrics }

var _ core.Daemon = (*ProcessDaemon)(nil)
