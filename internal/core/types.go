// Package core defines the daemon contract and the value types every
// other Duende package builds on: identity, status, signals, and the
// per-run context threaded into a running daemon.
package core

import (
	"time"

	"github.com/google/uuid"
)

// DaemonID is a stable, globally unique identifier assigned once at
// construction and never reused.
type DaemonID uuid.UUID

// NewDaemonID returns a fresh random identifier.
func NewDaemonID() DaemonID {
	return DaemonID(uuid.New())
}

// String renders the identifier in canonical UUID form.
func (id DaemonID) String() string {
	return uuid.UUID(id).String()
}

// DaemonStatus is the observed lifecycle state of a managed daemon.
type DaemonStatus int

const (
	StatusCreated DaemonStatus = iota
	StatusStarting
	StatusRunning
	StatusPaused
	StatusStopping
	StatusStopped
	StatusFailed
)

func (s DaemonStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status ends a supervision cycle.
func (s DaemonStatus) IsTerminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// IsActive reports whether the daemon is doing work.
func (s DaemonStatus) IsActive() bool {
	return s == StatusRunning || s == StatusPaused
}

// CanSignal reports whether the daemon can currently receive signals.
func (s DaemonStatus) CanSignal() bool {
	return s == StatusRunning || s == StatusPaused || s == StatusStopping
}

// ExitReasonKind classifies why a daemon's Run returned.
type ExitReasonKind int

const (
	ExitGraceful ExitReasonKind = iota
	ExitSignal
	ExitError
	ExitResourceExhausted
	ExitPolicyViolation
)

// ExitReason is the outcome of a completed Run call.
type ExitReason struct {
	Kind     ExitReasonKind
	Signal   Signal // valid when Kind == ExitSignal
	Detail   string // error text, resource name, or violation description
	FailedAt time.Time
}

func (r ExitReason) String() string {
	switch r.Kind {
	case ExitGraceful:
		return "graceful"
	case ExitSignal:
		return "signal:" + r.Signal.Name()
	case ExitError:
		return "error:" + r.Detail
	case ExitResourceExhausted:
		return "resource-exhausted:" + r.Detail
	case ExitPolicyViolation:
		return "policy-violation:" + r.Detail
	default:
		return "unknown"
	}
}

// FailureKind classifies a terminal Failed status.
type FailureKind int

const (
	FailureSignal FailureKind = iota
	FailureExitCode
	FailureResourceExhausted
	FailurePolicyViolation
	FailureHealthCheckTimeout
	FailureInternal
)

// FailureReason carries the detail behind a StatusFailed observation.
type FailureReason struct {
	Kind FailureKind
	Code int    // signal number or exit code, when applicable
	Note string
}

// Signal is a logical, wire-compatible Unix-style signal code.
type Signal int

const (
	SigHup  Signal = 1
	SigInt  Signal = 2
	SigQuit Signal = 3
	SigKill Signal = 9
	SigUsr1 Signal = 10
	SigUsr2 Signal = 12
	SigCont Signal = 18
	SigStop Signal = 19
	SigTerm Signal = 15
)

var signalNames = map[Signal]string{
	SigHup:  "HUP",
	SigInt:  "INT",
	SigQuit: "QUIT",
	SigTerm: "TERM",
	SigKill: "KILL",
	SigUsr1: "USR1",
	SigUsr2: "USR2",
	SigStop: "STOP",
	SigCont: "CONT",
}

// Name returns the canonical signal name (e.g. "TERM").
func (s Signal) Name() string {
	if n, ok := signalNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// SignalFromNumber maps a Unix signal number back to a logical Signal.
func SignalFromNumber(n int) (Signal, bool) {
	s := Signal(n)
	_, ok := signalNames[s]
	return s, ok
}

// IsShutdownSignal reports whether s is one of the signals that always
// flips DaemonContext.ShouldShutdown, regardless of channel capacity.
func (s Signal) IsShutdownSignal() bool {
	return s == SigTerm || s == SigInt || s == SigQuit
}

// HealthState classifies a health-check result.
type HealthState int

const (
	HealthHealthy HealthState = iota
	HealthDegraded
	HealthUnhealthy
)

// HealthStatus is the result of a Daemon.HealthCheck call.
type HealthStatus struct {
	State     HealthState
	Score     int // 0..5, meaningful only when State == HealthHealthy
	Reason    string
	Latency   time.Duration
	Timestamp time.Time
}

// Healthy constructs a fully-healthy status with the given score (0..5).
func Healthy(score int, latency time.Duration) HealthStatus {
	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}
	return HealthStatus{State: HealthHealthy, Score: score, Latency: latency, Timestamp: time.Now()}
}

// Degraded constructs a degraded status with a reason.
func Degraded(reason string, latency time.Duration) HealthStatus {
	return HealthStatus{State: HealthDegraded, Reason: reason, Latency: latency, Timestamp: time.Now()}
}

// Unhealthy constructs an unhealthy status with a reason.
func Unhealthy(reason string, latency time.Duration) HealthStatus {
	return HealthStatus{State: HealthUnhealthy, Reason: reason, Latency: latency, Timestamp: time.Now()}
}
