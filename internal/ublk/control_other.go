//go:build !linux

package ublk

import "errors"

// ErrUnsupported is returned by Open on platforms with no ublk driver.
var ErrUnsupported = errors.New("ublk: not supported on this platform")

// Control is an open handle to the ublk control device. ublk is a
// Linux-only kernel interface; every operation here except Close fails
// with an error wrapping ErrUnsupported. Close is a no-op.
type Control struct{}

func Open() (*Control, error) {
	return nil, &Error{Kind: KindControlDeviceNotFound, Err: ErrUnsupported}
}

func (c *Control) Close() error { return nil }

func (c *Control) GetDeviceInfo(devID uint32) (DevInfo, error) {
	return DevInfo{}, &Error{Kind: KindControlDeviceNotFound, Err: ErrUnsupported}
}

func (c *Control) StopDevice(devID uint32) (bool, error) {
	return false, &Error{Kind: KindControlDeviceNotFound, Err: ErrUnsupported}
}

func (c *Control) DeleteDevice(devID uint32) (bool, error) {
	return false, &Error{Kind: KindControlDeviceNotFound, Err: ErrUnsupported}
}

func (c *Control) ForceDelete(devID uint32) (bool, error) {
	return false, &Error{Kind: KindControlDeviceNotFound, Err: ErrUnsupported}
}
