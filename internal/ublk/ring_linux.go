//go:build linux

package ublk

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Minimal hand-rolled io_uring submission/completion ring, sized for
// exactly what Control needs: a handful of 128-byte (SQE128) URING_CMD
// submissions against one fd, read back through standard 16-byte CQEs.
// No ecosystem io_uring library is available to build on, so this talks
// to the kernel directly: io_uring_setup/io_uring_enter
// via raw syscalls, ring memory via mmap.

const (
	sysIoUringSetup = 425
	sysIoUringEnter = 426

	ioringOffSQRing = 0x0
	ioringOffCQRing = 0x8000000
	ioringOffSQEs   = 0x10000000

	ioringSetupSQE128 = 1 << 10

	ioringOpUringCmd = 46

	ioringEnterGetEvents = 1 << 0

	sqeSize       = 128
	sqeCmdOffset  = 48
	cqeSize       = 16
	ringQueueSize = 4
)

type sqRingOffsets struct {
	Head, Tail, RingMask, RingEntries, Flags, Dropped, Array uint32
	Resv1                                                    uint32
	Resv2                                                     uint64
}

type cqRingOffsets struct {
	Head, Tail, RingMask, RingEntries, Overflow, CQEs, Flags uint32
	Resv1                                                    uint32
	Resv2                                                    uint64
}

type ioUringParams struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	Resv         [3]uint32
	SQOff        sqRingOffsets
	CQOff        cqRingOffsets
}

// ring is a single-fd, single-depth-4 io_uring instance, enough to submit
// one command at a time and wait for its completion.
type ring struct {
	fd int

	sqRing  []byte
	cqRing  []byte
	sqes    []byte
	sqHead  *uint32
	sqTail  *uint32
	sqMask  uint32
	sqArray []uint32

	cqHead  *uint32
	cqTail  *uint32
	cqMask  uint32
	cqes    []byte
}

func newRing() (*ring, error) {
	var params ioUringParams
	params.Flags = ioringSetupSQE128

	fd, _, errno := unix.Syscall(sysIoUringSetup, uintptr(ringQueueSize), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	r := &ring{fd: int(fd)}

	sqRingSize := params.SQOff.Array + params.SQEntries*4
	cqRingSize := params.CQOff.CQEs + params.CQEntries*cqeSize
	sqesSize := params.SQEntries * sqeSize

	sq, err := unix.Mmap(r.fd, ioringOffSQRing, int(sqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Close(r.fd)
		return nil, fmt.Errorf("mmap sq ring: %w", err)
	}
	cq, err := unix.Mmap(r.fd, ioringOffCQRing, int(cqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sq)
		unix.Close(r.fd)
		return nil, fmt.Errorf("mmap cq ring: %w", err)
	}
	sqes, err := unix.Mmap(r.fd, ioringOffSQEs, int(sqesSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sq)
		unix.Munmap(cq)
		unix.Close(r.fd)
		return nil, fmt.Errorf("mmap sqes: %w", err)
	}

	r.sqRing = sq
	r.cqRing = cq
	r.sqes = sqes
	r.sqHead = (*uint32)(unsafe.Pointer(&sq[params.SQOff.Head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&sq[params.SQOff.Tail]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&sq[params.SQOff.RingMask]))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&sq[params.SQOff.Array])), params.SQEntries)
	r.cqHead = (*uint32)(unsafe.Pointer(&cq[params.CQOff.Head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&cq[params.CQOff.Tail]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&cq[params.CQOff.RingMask]))
	r.cqes = cq[params.CQOff.CQEs:]

	return r, nil
}

func (r *ring) close() {
	unix.Munmap(r.sqes)
	unix.Munmap(r.cqRing)
	unix.Munmap(r.sqRing)
	unix.Close(r.fd)
}

// submitCmd writes one URING_CMD SQE addressing fd with the given opcode
// and 80-byte command payload, tagged with userData for completion
// matching.
func (r *ring) submitCmd(fd int, opcode uint32, cmd [ctrlCmdExtSize]byte, userData uint64) {
	tail := *r.sqTail
	idx := tail & r.sqMask
	sqe := r.sqes[idx*sqeSize : idx*sqeSize+sqeSize]

	for i := range sqe {
		sqe[i] = 0
	}
	sqe[0] = ioringOpUringCmd
	binary.LittleEndian.PutUint32(sqe[4:8], uint32(int32(fd)))
	binary.LittleEndian.PutUint32(sqe[28:32], opcode) // cmd_op
	binary.LittleEndian.PutUint64(sqe[32:40], userData)
	copy(sqe[sqeCmdOffset:sqeCmdOffset+ctrlCmdExtSize], cmd[:])

	r.sqArray[idx] = idx
	*r.sqTail = tail + 1
}

// submit pushes pending SQEs to the kernel without waiting for completion.
func (r *ring) submit() error {
	_, _, errno := unix.Syscall6(sysIoUringEnter, uintptr(r.fd), 1, 0, 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("io_uring_enter: %w", errno)
	}
	return nil
}

// submitAndWait pushes pending SQEs and blocks until at least one
// completion is available.
func (r *ring) submitAndWait() error {
	_, _, errno := unix.Syscall6(sysIoUringEnter, uintptr(r.fd), 1, 1, ioringEnterGetEvents, 0, 0)
	if errno != 0 {
		return fmt.Errorf("io_uring_enter: %w", errno)
	}
	return nil
}

// pollCompletion returns (result, true) if a completion is available,
// consuming it from the ring.
func (r *ring) pollCompletion() (int32, bool) {
	head := *r.cqHead
	tail := *r.cqTail
	if head == tail {
		return 0, false
	}
	idx := head & r.cqMask
	cqe := r.cqes[idx*cqeSize : idx*cqeSize+cqeSize]
	res := int32(binary.LittleEndian.Uint32(cqe[8:12]))
	*r.cqHead = head + 1
	return res, true
}
