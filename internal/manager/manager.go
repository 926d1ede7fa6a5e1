// Package manager implements DaemonManager: the concurrent registry
// that owns registered daemons and drives each through init -> run ->
// shutdown with restart-policy-governed supervision, per
// SPEC_FULL.md §4.3.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paiml/duende/internal/breaker"
	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
	"github.com/paiml/duende/internal/restart"
)

// ErrUnknownDaemon is returned when an operation names an id that is
// not registered.
var ErrUnknownDaemon = errors.New("manager: unknown daemon id")

// ErrDuplicateID is returned by Register when the id is already present.
var ErrDuplicateID = errors.New("manager: duplicate daemon id")

// Snapshot is the read-only view of one managed daemon returned by
// Status and List.
type Snapshot struct {
	ID       core.DaemonID
	Name     string
	Status   core.DaemonStatus
	LastExit *core.ExitReason
	Attempts int
	Breaker  breaker.State
}

// GracePeriod is the minimum time a daemon must remain Running before a
// clean exit is treated as a success for backoff-reset purposes
// (SPEC_FULL.md §4.3: "reached Running for at least a grace duration").
const GracePeriod = 2 * time.Second

type entry struct {
	mu sync.Mutex

	daemon core.Daemon
	config *core.DaemonConfig

	status   core.DaemonStatus
	lastExit *core.ExitReason
	attempts int

	explicitlyStopped bool
	runningSince      time.Time

	backoff *restart.Backoff
	breaker *breaker.CircuitBreaker

	dctx   *core.DaemonContext
	handle *core.DaemonHandle

	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns a set of daemons and supervises each with its own task.
type Manager struct {
	mu      sync.RWMutex
	entries map[core.DaemonID]*entry

	adapter platform.Adapter
	logger  *zap.Logger
}

// New constructs a Manager bound to a single PlatformAdapter, matching
// the pure select_adapter(detect_platform()) call site described in
// SPEC_FULL.md §4.2.
func New(adapter platform.Adapter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{entries: make(map[core.DaemonID]*entry), adapter: adapter, logger: logger}
}

// Register adds a daemon under its own id. Duplicate ids are rejected;
// duplicate names are allowed per SPEC_FULL.md §4.3.
func (m *Manager) Register(d core.Daemon, cfg *core.DaemonConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := d.ID()
	if _, exists := m.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	m.entries[id] = &entry{
		daemon:  d,
		config:  cfg,
		status:  core.StatusCreated,
		backoff: restart.NewBackoff(100*time.Millisecond, 30*time.Second, 2, 0.1),
		breaker: breaker.New(5, 30*time.Second),
	}
	return nil
}

// Start begins supervision of a registered daemon. It is idempotent:
// calling Start on an already-running daemon is a no-op.
func (m *Manager) Start(ctx context.Context, id core.DaemonID) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.status == core.StatusStarting || e.status.IsActive() {
		e.mu.Unlock()
		return nil
	}
	e.explicitlyStopped = false
	superCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	go m.supervise(superCtx, id, e)
	return nil
}

// Stop cancels a daemon's supervision task and waits up to timeout for
// it to reach a terminal state.
func (m *Manager) Stop(id core.DaemonID, timeout time.Duration) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.explicitlyStopped = true
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("manager: stop timed out for daemon %s", id)
	}
}

// Signal delivers a logical signal into a running daemon's cooperative
// context. If the daemon also exposes a platform handle (it implements
// handleProvider), the signal is additionally forwarded to the adapter
// so backends that need an OS-level delivery (e.g. native SIGKILL) get
// one even when the daemon's own select loop cannot observe it.
func (m *Manager) Signal(ctx context.Context, id core.DaemonID, sig core.Signal) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	handle := e.handle
	dctx := e.dctx
	status := e.status
	e.mu.Unlock()

	if !status.CanSignal() {
		return nil
	}
	if dctx != nil {
		dctx.Deliver(sig)
	}
	if handle == nil || m.adapter == nil {
		return nil
	}
	return m.adapter.Signal(ctx, *handle, sig)
}

// Status returns a snapshot of one daemon's observed state.
func (m *Manager) Status(id core.DaemonID) (Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return e.snapshot(id, m.daemonName(e)), nil
}

// List returns a snapshot of every registered daemon, in no particular
// order. The Manager does not record insertion order; callers that need
// it must track it themselves.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.entries))
	for id, e := range m.entries {
		out = append(out, e.snapshot(id, m.daemonName(e)))
	}
	return out
}

// ShutdownAll walks every registered daemon and shuts it down
// concurrently, bounded by the given wall-clock timeout, per
// SPEC_FULL.md §4.3 and §5. Daemons are visited in map iteration order,
// not in registration order. Each daemon's Stop error (typically a
// per-daemon timeout) is logged but does not stop the others from
// being given their own chance to shut down.
func (m *Manager) ShutdownAll(timeout time.Duration) {
	m.mu.RLock()
	ids := make([]core.DaemonID, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	deadline := time.Now().Add(timeout)
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			return m.Stop(id, remaining)
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn("shutdown_all: one or more daemons did not stop cleanly", zap.Error(err))
	}
}

func (m *Manager) lookup(id core.DaemonID) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDaemon, id)
	}
	return e, nil
}

func (m *Manager) daemonName(e *entry) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.daemon != nil {
		return e.daemon.Name()
	}
	return ""
}

func (e *entry) snapshot(id core.DaemonID, name string) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		ID:       id,
		Name:     name,
		Status:   e.status,
		LastExit: e.lastExit,
		Attempts: e.attempts,
		Breaker:  e.breaker.State(),
	}
}

func (e *entry) setStatus(s core.DaemonStatus) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}
