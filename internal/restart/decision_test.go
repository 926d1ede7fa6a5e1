package restart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paiml/duende/internal/core"
)

func TestEvaluate_Never(t *testing.T) {
	policy := core.RestartPolicy{Kind: core.RestartNever}
	d := Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 0, false)
	assert.Equal(t, DecisionTerminal, d)
}

func TestEvaluate_Always(t *testing.T) {
	policy := core.RestartPolicy{Kind: core.RestartAlways}
	d := Evaluate(policy, core.ExitReason{Kind: core.ExitGraceful}, 5, false)
	assert.Equal(t, DecisionRestart, d)
}

func TestEvaluate_OnFailure_GracefulExitIsTerminal(t *testing.T) {
	policy := core.RestartPolicy{Kind: core.RestartOnFailure, MaxRetries: 3}
	d := Evaluate(policy, core.ExitReason{Kind: core.ExitGraceful}, 0, false)
	assert.Equal(t, DecisionTerminal, d)
}

func TestEvaluate_OnFailure_RestartsUntilMaxRetries(t *testing.T) {
	policy := core.RestartPolicy{Kind: core.RestartOnFailure, MaxRetries: 2}

	assert.Equal(t, DecisionRestart, Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 0, false))
	assert.Equal(t, DecisionRestart, Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 1, false))
	assert.Equal(t, DecisionTerminal, Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 2, false))
}

func TestEvaluate_UnlessStopped(t *testing.T) {
	policy := core.RestartPolicy{Kind: core.RestartUnlessStopped}

	assert.Equal(t, DecisionRestart, Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 0, false))
	assert.Equal(t, DecisionTerminal, Evaluate(policy, core.ExitReason{Kind: core.ExitError}, 0, true))
}
