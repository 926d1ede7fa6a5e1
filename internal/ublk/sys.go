// Package ublk manages ublk (userspace block device) control operations:
// device info, stop, delete, and orphan-device reclamation after a crash.
package ublk

// Direct port of the kernel's include/uapi/linux/ublk_cmd.h ioctl encoding
// and control-command/device-info structures. Field order and sizes must
// match the kernel layout exactly; these are wire structures, not Go
// conveniences.

const (
	ublkMagic = uint32('u')

	// Raw command numbers, before ioctl encoding.
	cmdGetDevInfo = 0x02
	cmdDelDev     = 0x05
	cmdStopDev    = 0x07
)

func iocEncode(dir, ty, nr uint32, sz int) uint32 {
	return (dir << 30) | (uint32(sz) << 16) | (ty << 8) | nr
}

func ior(ty, nr uint32, sz int) uint32  { return iocEncode(2, ty, nr, sz) }
func iowr(ty, nr uint32, sz int) uint32 { return iocEncode(3, ty, nr, sz) }

var (
	// UBLK_U_CMD_GET_DEV_INFO = _IOR('u', 0x02, struct ublksrv_ctrl_cmd)
	cmdOpGetDevInfo = ior(ublkMagic, cmdGetDevInfo, ctrlCmdSize)
	// UBLK_U_CMD_DEL_DEV = _IOWR('u', 0x05, struct ublksrv_ctrl_cmd)
	cmdOpDelDev = iowr(ublkMagic, cmdDelDev, ctrlCmdSize)
	// UBLK_U_CMD_STOP_DEV = _IOWR('u', 0x07, struct ublksrv_ctrl_cmd)
	cmdOpStopDev = iowr(ublkMagic, cmdStopDev, ctrlCmdSize)
)

const (
	ctrlCmdSize    = 32
	ctrlCmdExtSize = 80
	devInfoSize    = 64
)

// CtrlCmd is the 32-byte control command payload, matching the kernel's
// ublksrv_ctrl_cmd. Used for every UBLK_CMD_* operation via
// IORING_OP_URING_CMD.
type CtrlCmd struct {
	DevID      uint32
	QueueID    uint16 // 0xffff for device-level commands
	Len        uint16
	Addr       uint64
	Data       [1]uint64
	DevPathLen uint16
	Pad        uint16
	Reserved   uint32
}

// ctrlCmdForDevice builds a device-level (QueueID = 0xffff) command addressing
// devID, with every other field zeroed.
func ctrlCmdForDevice(devID uint32) CtrlCmd {
	return CtrlCmd{DevID: devID, QueueID: 0xffff}
}

// CtrlCmdExt is the 80-byte extended command carried in the cmd region of
// a 128-byte (SQE128) submission queue entry: the first 32 bytes are the
// CtrlCmd, the rest padding to fill the URING_CMD cmd area.
type CtrlCmdExt struct {
	Cmd     CtrlCmd
	Padding [48]byte
}

func extForDevice(devID uint32) CtrlCmdExt {
	return CtrlCmdExt{Cmd: ctrlCmdForDevice(devID)}
}

// DevInfo is the 64-byte device info structure, matching the kernel's
// ublksrv_ctrl_dev_info.
type DevInfo struct {
	NrHWQueues    uint16
	QueueDepth    uint16
	State         uint16
	Pad0          uint16
	MaxIOBufBytes uint32
	DevID         uint32
	UblksrvPID    int32
	Pad1          uint32
	Flags         uint64
	UblksrvFlags  uint64
	OwnerUID      uint32
	OwnerGID      uint32
	Reserved1     uint64
	Reserved2     uint64
}

const (
	// CtrlDevPath is the path to the ublk control device.
	CtrlDevPath = "/dev/ublk-control"
	// CharDevPrefix names a device's character node, present regardless
	// of whether the daemon behind it is alive.
	CharDevPrefix = "/dev/ublkc"
	// BlockDevPrefix names a device's block node, present only while a
	// daemon is actively serving it.
	BlockDevPrefix = "/dev/ublkb"
)
