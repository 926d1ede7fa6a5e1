package manager

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/restart"
)

// handleProvider is implemented by Daemon values that also own a
// platform-backed process, unit, or container and want the manager to
// forward signals and status queries to the adapter in addition to the
// cooperative DaemonContext channel. Implementing it is optional: pure
// in-process daemons rely on the channel alone.
type handleProvider interface {
	Handle() (core.DaemonHandle, bool)
}

// supervise drives one entry through init -> run -> (restart | stop)
// until its context is cancelled or a terminal decision is reached. It
// is the single goroutine that ever mutates e.status, e.lastExit,
// e.attempts, e.backoff, and e.breaker, so no locking races with
// the read-only snapshot accessors.
func (m *Manager) supervise(ctx context.Context, id core.DaemonID, e *entry) {
	defer close(e.done)

	logger := m.logger.With(zap.String("daemon_id", id.String()), zap.String("daemon_name", e.daemon.Name()))

	for {
		e.setStatus(core.StatusStarting)

		dctx := core.NewDaemonContext(core.DefaultSignalChannelCapacity)
		e.mu.Lock()
		e.dctx = dctx
		e.mu.Unlock()

		if err := e.daemon.Init(ctx, e.config); err != nil {
			logger.Error("daemon init failed", zap.Error(err))
			e.recordExit(core.ExitReason{Kind: core.ExitError, Detail: err.Error(), FailedAt: time.Now()})
			if !m.maybeRestart(ctx, id, e, logger) {
				return
			}
			continue
		}

		e.mu.Lock()
		e.runningSince = time.Now()
		// Read the handle only after Init, which is where adapter-backed
		// daemons spawn and obtain it for this run.
		e.handle = nil
		if hp, ok := e.daemon.(handleProvider); ok {
			if h, ok := hp.Handle(); ok {
				e.handle = &h
			}
		}
		e.mu.Unlock()
		e.setStatus(core.StatusRunning)

		reason := e.daemon.Run(ctx, dctx)
		dctx.Close()
		e.recordExit(reason)

		// Shutdown releases this run's resources (including, for
		// adapter-backed daemons, the platform handle's lock) whether
		// the next step is a restart's fresh Init/Spawn or a terminal
		// state; skipping it on the restart path leaves e.g. the native
		// backend's per-name flock held, so the next Spawn always fails.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.config.ShutdownTimeout)
		if err := e.daemon.Shutdown(shutdownCtx); err != nil {
			logger.Warn("daemon shutdown returned error", zap.Error(err))
		}
		cancel()

		select {
		case <-ctx.Done():
			e.setStatus(terminalStatusFor(reason))
			return
		default:
		}

		if !m.maybeRestart(ctx, id, e, logger) {
			return
		}
	}
}

// maybeRestart applies the restart-decision algorithm and, when it
// calls for a restart, sleeps out the breaker/backoff gate before
// returning true. It returns false when supervision should stop.
func (m *Manager) maybeRestart(ctx context.Context, id core.DaemonID, e *entry, logger *zap.Logger) bool {
	e.mu.Lock()
	reason := *e.lastExit
	policy := e.config.Restart
	stopped := e.explicitlyStopped
	attempts := e.attempts
	grace := !e.runningSince.IsZero() && time.Since(e.runningSince) >= GracePeriod
	e.mu.Unlock()

	if grace && reason.Kind == core.ExitGraceful {
		e.mu.Lock()
		e.attempts = 0
		e.backoff.Reset()
		e.breaker.Success()
		e.mu.Unlock()
	}

	decision := restart.Evaluate(policy, reason, attempts, stopped)
	switch decision {
	case restart.DecisionTerminal:
		e.mu.Lock()
		e.attempts++
		e.mu.Unlock()
		e.setStatus(terminalStatusFor(reason))
		return false
	case restart.DecisionRestart:
		e.mu.Lock()
		if !e.breaker.Allow() {
			e.mu.Unlock()
			logger.Warn("restart deferred by circuit breaker")
			return m.waitBreaker(ctx, e)
		}
		e.breaker.Failure()
		e.attempts++
		delay := e.backoff.Next()
		e.mu.Unlock()

		logger.Info("restarting daemon", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			e.setStatus(core.StatusStopped)
			return false
		case <-time.After(delay):
			return true
		}
	default:
		return m.waitBreaker(ctx, e)
	}
}

// waitBreaker parks until the breaker's cool-down has elapsed or the
// supervision context is cancelled, then re-enters the main loop to
// re-evaluate.
func (m *Manager) waitBreaker(ctx context.Context, e *entry) bool {
	const pollInterval = 500 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			e.setStatus(core.StatusStopped)
			return false
		case <-time.After(pollInterval):
			e.mu.Lock()
			allowed := e.breaker.Allow()
			e.mu.Unlock()
			if allowed {
				return true
			}
		}
	}
}

func (e *entry) recordExit(reason core.ExitReason) {
	e.mu.Lock()
	e.lastExit = &reason
	e.mu.Unlock()
}

func terminalStatusFor(reason core.ExitReason) core.DaemonStatus {
	if reason.Kind == core.ExitGraceful {
		return core.StatusStopped
	}
	return core.StatusFailed
}
