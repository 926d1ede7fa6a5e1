//go:build linux

package ublk

import (
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultCommandTimeout bounds how long a single control command waits for
// its completion before giving up.
const DefaultCommandTimeout = 5 * time.Second

// pollInterval is how often a pending command re-checks for completion
// while waiting, to avoid busy-spinning the CPU.
const pollInterval = 10 * time.Millisecond

// Control is an open handle to the ublk control device, able to query,
// stop, and delete devices by id.
type Control struct {
	file *os.File
	ring *ring
}

// Open opens /dev/ublk-control and builds the io_uring instance used for
// every subsequent command.
func Open() (*Control, error) {
	if _, err := os.Stat(CtrlDevPath); err != nil {
		return nil, ErrControlDeviceNotFound
	}

	file, err := os.OpenFile(CtrlDevPath, os.O_RDWR, 0)
	if err != nil {
		return nil, &Error{Kind: KindOpenControl, Err: err}
	}

	r, err := newRing()
	if err != nil {
		file.Close()
		return nil, &Error{Kind: KindIoUringCreate, Err: err}
	}

	return &Control{file: file, ring: r}, nil
}

// Close releases the control device and its io_uring instance.
func (c *Control) Close() error {
	c.ring.close()
	return c.file.Close()
}

// GetDeviceInfo queries the kernel for a device's current state. Unlike
// the stop/delete commands, the kernel copies its reply into a separate
// buffer addressed by the command rather than the SQE itself.
func (c *Control) GetDeviceInfo(devID uint32) (DevInfo, error) {
	info := make([]byte, devInfoSize)

	cmd := extForDevice(devID)
	cmd.Cmd.Addr = uint64(uintptr(unsafe.Pointer(&info[0])))
	cmd.Cmd.Len = devInfoSize

	fd := int(c.file.Fd())
	c.ring.submitCmd(fd, cmdOpGetDevInfo, cmd.bytes(), 1)
	if err := c.ring.submitAndWait(); err != nil {
		return DevInfo{}, &Error{Kind: KindIoUringSubmit, Err: err}
	}

	res, ok := c.ring.pollCompletion()
	if !ok {
		return DevInfo{}, &Error{Kind: KindTimeout, Message: DefaultCommandTimeout.String()}
	}
	if res < 0 {
		if res == -int32(unix.ENOENT) {
			return DevInfo{}, &Error{Kind: KindDeviceNotFound, DevID: devID}
		}
		return DevInfo{}, fromErrno(int(res))
	}

	return decodeDevInfo(info), nil
}

// StopDevice sends STOP_DEV, halting a running device so it can later be
// deleted.
func (c *Control) StopDevice(devID uint32) (bool, error) {
	return c.sendCommand(devID, cmdOpStopDev, DefaultCommandTimeout)
}

// DeleteDevice sends DEL_DEV, removing a stopped device's kernel state.
// Deleting a still-running device fails with DeviceBusy.
func (c *Control) DeleteDevice(devID uint32) (bool, error) {
	return c.sendCommand(devID, cmdOpDelDev, DefaultCommandTimeout)
}

// ForceDelete stops devID if running, ignoring any error, then deletes it.
// Used to reclaim orphaned devices whose owning daemon has already died.
func (c *Control) ForceDelete(devID uint32) (bool, error) {
	_, _ = c.StopDevice(devID)
	return c.DeleteDevice(devID)
}

func (c *Control) sendCommand(devID uint32, opcode uint32, timeout time.Duration) (bool, error) {
	cmd := extForDevice(devID)
	fd := int(c.file.Fd())

	c.ring.submitCmd(fd, opcode, cmd.bytes(), 1)
	if err := c.ring.submit(); err != nil {
		return false, &Error{Kind: KindIoUringSubmit, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		if res, ok := c.ring.pollCompletion(); ok {
			if res < 0 {
				switch res {
				case -int32(unix.ENOENT):
					return false, nil
				case -int32(unix.EBUSY):
					return false, &Error{Kind: KindDeviceBusy, DevID: devID}
				default:
					return false, fromErrno(int(res))
				}
			}
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, &Error{Kind: KindTimeout, Message: timeout.String()}
		}
		time.Sleep(pollInterval)
	}
}
