//go:build !linux

package ublk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpen_UnsupportedPlatform(t *testing.T) {
	ctrl, err := Open()
	assert.Nil(t, ctrl)
	assert.True(t, isControlDeviceNotFound(err))
}

func TestControl_AllOperationsReportUnsupported(t *testing.T) {
	var ctrl *Control
	_, err := ctrl.GetDeviceInfo(0)
	assert.Error(t, err)
	_, err = ctrl.StopDevice(0)
	assert.Error(t, err)
	_, err = ctrl.DeleteDevice(0)
	assert.Error(t, err)
	_, err = ctrl.ForceDelete(0)
	assert.Error(t, err)
	assert.NoError(t, ctrl.Close())
}
