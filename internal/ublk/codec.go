package ublk

import (
	"bytes"
	"encoding/binary"
)

// bytes encodes the extended command in the kernel's expected
// little-endian wire layout, for placement in a submission queue entry's
// cmd region.
func (c CtrlCmdExt) bytes() [ctrlCmdExtSize]byte {
	var buf bytes.Buffer
	buf.Grow(ctrlCmdExtSize)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.DevID)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.QueueID)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.Len)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.Addr)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.Data)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.DevPathLen)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.Pad)
	_ = binary.Write(&buf, binary.LittleEndian, c.Cmd.Reserved)
	_ = binary.Write(&buf, binary.LittleEndian, c.Padding)

	var out [ctrlCmdExtSize]byte
	copy(out[:], buf.Bytes())
	return out
}

// decodeDevInfo parses the little-endian wire layout the kernel writes
// into the buffer addressed by a GET_DEV_INFO command.
func decodeDevInfo(b []byte) DevInfo {
	r := bytes.NewReader(b)
	var info DevInfo
	_ = binary.Read(r, binary.LittleEndian, &info.NrHWQueues)
	_ = binary.Read(r, binary.LittleEndian, &info.QueueDepth)
	_ = binary.Read(r, binary.LittleEndian, &info.State)
	_ = binary.Read(r, binary.LittleEndian, &info.Pad0)
	_ = binary.Read(r, binary.LittleEndian, &info.MaxIOBufBytes)
	_ = binary.Read(r, binary.LittleEndian, &info.DevID)
	_ = binary.Read(r, binary.LittleEndian, &info.UblksrvPID)
	_ = binary.Read(r, binary.LittleEndian, &info.Pad1)
	_ = binary.Read(r, binary.LittleEndian, &info.Flags)
	_ = binary.Read(r, binary.LittleEndian, &info.UblksrvFlags)
	_ = binary.Read(r, binary.LittleEndian, &info.OwnerUID)
	_ = binary.Read(r, binary.LittleEndian, &info.OwnerGID)
	_ = binary.Read(r, binary.LittleEndian, &info.Reserved1)
	_ = binary.Read(r, binary.LittleEndian, &info.Reserved2)
	return info
}
