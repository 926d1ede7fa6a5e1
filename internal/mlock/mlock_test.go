package mlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportString(t *testing.T) {
	assert.Equal(t, "full", SupportFull.String())
	assert.Equal(t, "limited", SupportLimited.String())
	assert.Equal(t, "unsupported", SupportUnsupported.String())
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "permission_denied", FailurePermissionDenied.String())
	assert.Equal(t, "resource_limit", FailureResourceLimit.String())
	assert.Equal(t, "other", FailureOther.String())
	assert.Equal(t, "none", FailureNone.String())
}

func TestError_Unwrap(t *testing.T) {
	inner := assertionError("boom")
	e := &Error{Kind: FailureOther, Op: "mlockall", Err: inner}
	assert.Equal(t, inner, e.Unwrap())
	assert.Contains(t, e.Error(), "mlockall")
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
