package ublk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCtrlCmdExtBytes_Length(t *testing.T) {
	ext := extForDevice(1)
	b := ext.bytes()
	assert.Len(t, b, ctrlCmdExtSize)
}

func TestCtrlCmdExtBytes_DevIDLittleEndian(t *testing.T) {
	ext := extForDevice(1)
	b := ext.bytes()
	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, byte(0), b[1])
	assert.Equal(t, byte(0), b[2])
	assert.Equal(t, byte(0), b[3])
}

func TestExtForDevice_QueueIDIsDeviceLevel(t *testing.T) {
	ext := extForDevice(42)
	assert.Equal(t, uint32(42), ext.Cmd.DevID)
	assert.Equal(t, uint16(0xffff), ext.Cmd.QueueID)
}

func TestDecodeDevInfo_RoundTrips(t *testing.T) {
	info := DevInfo{NrHWQueues: 2, QueueDepth: 128, State: 1, DevID: 7, UblksrvPID: 1234}

	ext := extForDevice(7)
	_ = ext // device info is encoded separately from the command struct

	// Build the same 64-byte layout decodeDevInfo expects, by hand, to
	// verify the field offsets match the kernel's struct.
	raw := make([]byte, devInfoSize)
	raw[0], raw[1] = 2, 0 // nr_hw_queues
	raw[2], raw[3] = 128, 0
	raw[4], raw[5] = 1, 0
	raw[12], raw[13], raw[14], raw[15] = 7, 0, 0, 0
	raw[16], raw[17], raw[18], raw[19] = 210, 4, 0, 0 // 1234 little-endian

	got := decodeDevInfo(raw)
	assert.Equal(t, info.NrHWQueues, got.NrHWQueues)
	assert.Equal(t, info.QueueDepth, got.QueueDepth)
	assert.Equal(t, info.State, got.State)
	assert.Equal(t, info.DevID, got.DevID)
	assert.Equal(t, info.UblksrvPID, got.UblksrvPID)
}

func TestIOCTLEncoding_MatchesKernelValues(t *testing.T) {
	assert.Equal(t, (uint32(3)<<30)|(uint32(32)<<16)|(uint32(0x75)<<8)|0x05, cmdOpDelDev)
	assert.Equal(t, (uint32(3)<<30)|(uint32(32)<<16)|(uint32(0x75)<<8)|0x07, cmdOpStopDev)
	assert.Equal(t, (uint32(2)<<30)|(uint32(32)<<16)|(uint32(0x75)<<8)|0x02, cmdOpGetDevInfo)
}

func TestCtrlDevPaths(t *testing.T) {
	assert.Equal(t, "/dev/ublk-control", CtrlDevPath)
	assert.Equal(t, "/dev/ublkb", BlockDevPrefix)
	assert.Equal(t, "/dev/ublkc", CharDevPrefix)
}
