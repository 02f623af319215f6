package hooks

import (
	"encoding/binary"
	"fmt"
)

// Guest gives read access to the vCPU that hit a hook.
type Guest interface {
	// StackPointer returns the current value of ESP.
	StackPointer() (uint32, error)
	// ReadMemory fills buf from guest virtual address vaddr.
	ReadMemory(vaddr uint64, buf []byte) error
}

// Recorder receives fully resolved events.
type Recorder interface {
	RecordEntry(function string, sp uint32, params []uint32)
	RecordExit(function string, sp uint32)
	RecordCount(function string, sp uint32, params []uint32)
	RecordSignal(object uint32)
}

// readStackArgs reads one little-endian word per offset above sp.
func readStackArgs(g Guest, sp uint32, offsets []uint32) ([]uint32, error) {
	if len(offsets) == 0 {
		return nil, nil
	}

	params := make([]uint32, len(offsets))
	var buf [4]byte
	for i, off := range offsets {
		vaddr := uint64(sp) + uint64(off)
		if err := g.ReadMemory(vaddr, buf[:]); err != nil {
			return nil, fmt.Errorf("read argument at %#x: %w", vaddr, err)
		}
		params[i] = binary.LittleEndian.Uint32(buf[:])
	}
	return params, nil
}
