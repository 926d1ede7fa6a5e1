//go:build !linux

package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttach_UnsupportedOffLinux(t *testing.T) {
	_, err := Attach(0)
	assert.ErrorIs(t, err, ErrTracerNotSupported)
}
