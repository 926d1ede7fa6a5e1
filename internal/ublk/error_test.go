package ublk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestFromErrno_Messages(t *testing.T) {
	cases := []struct {
		errno int
		want  string
	}{
		{int(unix.ENOENT), "device not found"},
		{int(unix.EEXIST), "device already exists"},
		{int(unix.EBUSY), "device is busy"},
		{int(unix.EPERM), "permission denied"},
		{int(unix.EINVAL), "invalid argument"},
	}
	for _, c := range cases {
		err := fromErrno(c.errno)
		assert.Equal(t, c.want, err.Message)
		assert.Equal(t, KindIoUringCommand, err.Kind)
	}
}

func TestFromErrno_Unknown(t *testing.T) {
	err := fromErrno(-999)
	assert.Contains(t, err.Message, "unknown error")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&Error{Kind: KindDeviceNotFound, DevID: 5}))
	assert.True(t, IsNotFound(fromErrno(int(unix.ENOENT))))
	assert.False(t, IsNotFound(fromErrno(int(unix.EBUSY))))
	assert.False(t, IsNotFound(nil))
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, IsPermissionDenied(fromErrno(int(unix.EPERM))))
	assert.False(t, IsPermissionDenied(fromErrno(int(unix.ENOENT))))
}

func TestError_ErrorMessages(t *testing.T) {
	assert.Contains(t, ErrControlDeviceNotFound.Error(), "ublk-control")

	busy := &Error{Kind: KindDeviceBusy, DevID: 9}
	assert.Contains(t, busy.Error(), "9")
	assert.Contains(t, busy.Error(), "busy")

	notFound := &Error{Kind: KindDeviceNotFound, DevID: 3}
	assert.Contains(t, notFound.Error(), "3")
	assert.Contains(t, notFound.Error(), "not found")
}
