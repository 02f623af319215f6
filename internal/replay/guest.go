package replay

import (
	"encoding/binary"
	"fmt"
)

// frameGuest exposes one recorded event as guest state.
type frameGuest struct {
	ev Event
}

func (g frameGuest) StackPointer() (uint32, error) {
	return g.ev.ESP, nil
}

func (g frameGuest) ReadMemory(vaddr uint64, buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("unsupported read size %d", len(buf))
	}
	if vaddr < uint64(g.ev.ESP) {
		return fmt.Errorf("address %#x is below the recorded stack", vaddr)
	}

	word, ok := g.ev.Stack[uint32(vaddr-uint64(g.ev.ESP))]
	if !ok {
		return fmt.Errorf("address %#x was not recorded", vaddr)
	}
	binary.LittleEndian.PutUint32(buf, word)
	return nil
}
