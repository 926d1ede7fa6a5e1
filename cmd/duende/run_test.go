package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/manager"
)

func TestAllDaemonsFailed_EmptyIsFalse(t *testing.T) {
	assert.False(t, allDaemonsFailed(nil))
}

func TestAllDaemonsFailed_TrueWhenEveryDaemonFailed(t *testing.T) {
	snaps := []manager.Snapshot{
		{Status: core.StatusFailed},
		{Status: core.StatusFailed},
	}
	assert.True(t, allDaemonsFailed(snaps))
}

func TestAllDaemonsFailed_FalseWhenOneDaemonStillHealthy(t *testing.T) {
	snaps := []manager.Snapshot{
		{Status: core.StatusFailed},
		{Status: core.StatusRunning},
	}
	assert.False(t, allDaemonsFailed(snaps))
}

func TestAllDaemonsFailed_FalseWhenAllStoppedGracefully(t *testing.T) {
	snaps := []manager.Snapshot{
		{Status: core.StatusStopped},
		{Status: core.StatusStopped},
	}
	assert.False(t, allDaemonsFailed(snaps))
}
