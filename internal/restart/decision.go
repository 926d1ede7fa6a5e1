package restart

import "github.com/paiml/duende/internal/core"

// Decision is the outcome of evaluating a restart policy against one
// exit.
type Decision int

const (
	// DecisionRestart means the manager should sleep for the backoff
	// delay and then transition the daemon back to Starting.
	DecisionRestart Decision = iota
	// DecisionTerminal means the daemon has reached a final state
	// (Stopped or Failed, depending on ExitReason).
	DecisionTerminal
	// DecisionDeferred means a CircuitBreaker rejected this cycle; the
	// manager retries at the end of the breaker's cool-down without
	// consuming a restart attempt.
	DecisionDeferred
)

// Evaluate implements the restart-decision algorithm from
// SPEC_FULL.md §4.3, steps 1-4 (steps 5-6, the CircuitBreaker gate and
// the backoff sleep, are applied by the caller since they need the
// breaker and the sleep clock).
func Evaluate(policy core.RestartPolicy, reason core.ExitReason, attempts int, explicitlyStopped bool) Decision {
	switch policy.Kind {
	case core.RestartNever:
		return DecisionTerminal
	case core.RestartOnFailure:
		if reason.Kind == core.ExitGraceful {
			return DecisionTerminal
		}
		if attempts < policy.MaxRetries {
			return DecisionRestart
		}
		return DecisionTerminal
	case core.RestartAlways:
		return DecisionRestart
	case core.RestartUnlessStopped:
		if explicitlyStopped {
			return DecisionTerminal
		}
		return DecisionRestart
	default:
		return DecisionTerminal
	}
}
