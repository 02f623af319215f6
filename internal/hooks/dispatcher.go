package hooks

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/arch/x86/x86asm"
)

// guestMode is the x86 operand size of the traced guest.
const guestMode = 32

// Stats counts dispatcher activity.
type Stats struct {
	Instrumented int
	Fired        uint64
	Dropped      uint64
}

// Dispatcher turns hooked instruction executions into Recorder events.
// Translate and Execute may be called concurrently from any vCPU.
type Dispatcher struct {
	logger   zerolog.Logger
	table    *Table
	recorder Recorder

	mu           sync.RWMutex
	instrumented map[uint64]Action

	fired   atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher creates a Dispatcher with nothing instrumented yet.
func NewDispatcher(logger zerolog.Logger, table *Table, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		logger:       logger.With().Str("component", "hooks").Logger(),
		table:        table,
		recorder:     recorder,
		instrumented: make(map[uint64]Action),
	}
}

// Translate scans a block of guest code starting at base and instruments
// every decoded instruction that carries a hook. It returns the addresses
// instrumented by this call. Decoding stops at the first invalid or
// truncated instruction.
func (d *Dispatcher) Translate(base uint64, code []byte) []uint64 {
	var hit []uint64

	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], guestMode)
		// x86asm reports a truncated instruction as a bare prefix with Op 0.
		if err != nil || inst.Op == 0 {
			d.logger.Debug().
				Err(err).
				Uint64("vaddr", base+uint64(off)).
				Msg("Stopping block scan at invalid or truncated instruction")
			break
		}

		vaddr := base + uint64(off)
		if action, ok := d.table.Lookup(vaddr); ok {
			d.instrument(action)
			hit = append(hit, vaddr)
		}
		off += inst.Len
	}

	return hit
}

// InstrumentAll instruments every address in the table without scanning
// guest code and returns those addresses in order.
func (d *Dispatcher) InstrumentAll() []uint64 {
	addrs := d.table.Addresses()
	for _, addr := range addrs {
		action, _ := d.table.Lookup(addr)
		d.instrument(action)
	}
	return addrs
}

func (d *Dispatcher) instrument(action Action) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.instrumented[action.Addr]; ok {
		return
	}
	d.instrumented[action.Addr] = action
	d.logger.Debug().
		Str("function", action.Spec.Function).
		Str("role", action.Role.String()).
		Uint64("vaddr", action.Addr).
		Msg("Instrumented hook")
}

// Execute runs the hook bound to vaddr, if it is instrumented.
func (d *Dispatcher) Execute(g Guest, vaddr uint64) {
	d.mu.RLock()
	action, ok := d.instrumented[vaddr]
	d.mu.RUnlock()
	if !ok {
		return
	}

	spec := action.Spec

	sp, err := g.StackPointer()
	if err != nil {
		d.drop(spec.Function, vaddr, err)
		return
	}

	if action.Role == RoleExit {
		d.fired.Add(1)
		d.recorder.RecordExit(spec.Function, sp)
		return
	}

	params, err := readStackArgs(g, sp, spec.ArgOffsets)
	if err != nil {
		d.drop(spec.Function, vaddr, err)
		return
	}

	d.fired.Add(1)
	switch spec.Kind {
	case KindWait:
		d.recorder.RecordEntry(spec.Function, sp, params)
	case KindCount:
		d.recorder.RecordCount(spec.Function, sp, params)
	case KindSignal:
		d.recorder.RecordSignal(params[0])
	}
}

func (d *Dispatcher) drop(function string, vaddr uint64, err error) {
	d.dropped.Add(1)
	d.logger.Debug().
		Err(err).
		Str("function", function).
		Uint64("vaddr", vaddr).
		Msg("Dropped hook event with unreadable guest state")
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	n := len(d.instrumented)
	d.mu.RUnlock()

	return Stats{
		Instrumented: n,
		Fired:        d.fired.Load(),
		Dropped:      d.dropped.Load(),
	}
}
