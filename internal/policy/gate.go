// Package policy implements the supervisor's health-gating and
// resource-limiting collaborators: JidokaGate and ResourceLimiter.
// CircuitBreaker lives in internal/breaker since it is shared with the
// restart-decision path, not policy-only.
package policy

import (
	"strings"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/observe"
)

// ViolationKind classifies why a check failed.
type ViolationKind int

const (
	ViolationComplexity ViolationKind = iota
	ViolationTechnicalDebt
	ViolationDeadCode
	ViolationQualityScore
	ViolationResourceLimit
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationComplexity:
		return "complexity"
	case ViolationTechnicalDebt:
		return "technical_debt"
	case ViolationDeadCode:
		return "dead_code"
	case ViolationQualityScore:
		return "quality_score"
	case ViolationResourceLimit:
		return "resource_limit"
	default:
		return "unknown"
	}
}

// Violation is a single failed check.
type Violation struct {
	Kind  ViolationKind
	Check string
	Detail string
}

// State is the observed-state snapshot a Check runs against.
type State struct {
	DaemonName string
	Snapshot   observe.Snapshot
	Metrics    *core.DaemonMetrics
}

// Check is one named rule over a daemon's observed state. It returns a
// non-nil Violation on failure, nil on pass.
type Check struct {
	Name string
	Run  func(State) *Violation
}

// Mode controls whether Evaluate stops at the first failing check or
// runs every check and collects all violations.
type Mode int

const (
	ModeStopOnFirstFailure Mode = iota
	ModeCollectAll
)

// Result is the outcome of running a Gate against one State.
type Result struct {
	Violations     []Violation
	Recommendation string
}

// Passed reports whether no check failed.
func (r Result) Passed() bool { return len(r.Violations) == 0 }

// Gate is a named sequence of checks, run in order.
type Gate struct {
	Checks []Check
	Mode   Mode
}

// NewGate builds a Gate over the given checks, in the given mode.
func NewGate(mode Mode, checks ...Check) *Gate {
	return &Gate{Checks: checks, Mode: mode}
}

// Evaluate runs the checks in order against state, stopping after the
// first violation in ModeStopOnFirstFailure. Violations do not themselves
// terminate a daemon; the caller decides whether to treat the result as
// fatal.
func (g *Gate) Evaluate(state State) Result {
	var violations []Violation
	for _, c := range g.Checks {
		if v := c.Run(state); v != nil {
			v.Check = c.Name
			violations = append(violations, *v)
			if g.Mode == ModeStopOnFirstFailure {
				break
			}
		}
	}
	return Result{Violations: violations, Recommendation: recommend(violations)}
}

func recommend(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}
	names := make([]string, len(violations))
	for i, v := range violations {
		names[i] = v.Kind.String()
	}
	return "review: " + strings.Join(names, ", ")
}
