package tracer

import (
	"io"
	"os"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// StackThreshold is the widest stack pointer distance at which an exit can
// still close a pending entry.
const StackThreshold = 256

// DefaultCommandName is the console command the tracer answers to.
const DefaultCommandName = "waittrace"

// CallRecord is one captured entry of a traced function.
type CallRecord struct {
	ID           uint64
	Function     string
	Params       []uint32
	StackPointer uint32
}

// Tracer records pending calls, call-site counters and signal tallies.
type Tracer struct {
	logger  zerolog.Logger
	out     io.Writer
	command string

	// warnings reports unmatched returns at warn level even when logger is
	// filtered to error.
	warnings zerolog.Logger

	mu       sync.Mutex
	nextID   uint64
	pending  map[string][]CallRecord
	counters map[string][]CallRecord
	signals  map[uint32]uint64
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithOutput sets the operator channel that command reports are written to.
// Defaults to os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(t *Tracer) {
		t.out = w
	}
}

// WithCommandName sets the command name shown in usage hints.
func WithCommandName(name string) Option {
	return func(t *Tracer) {
		if name != "" {
			t.command = name
		}
	}
}

// New creates an empty Tracer.
func New(logger zerolog.Logger, opts ...Option) *Tracer {
	logger = logger.With().Str("component", "tracer").Logger()
	t := &Tracer{
		logger:   logger,
		warnings: logger.Level(min(logger.GetLevel(), zerolog.WarnLevel)),
		out:      os.Stderr,
		command:  DefaultCommandName,
		pending:  make(map[string][]CallRecord),
		counters: make(map[string][]CallRecord),
		signals:  make(map[uint32]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CommandName returns the console command name the tracer answers to.
func (t *Tracer) CommandName() string {
	return t.command
}

// RecordEntry files a new pending call for function.
func (t *Tracer) RecordEntry(function string, sp uint32, params []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending[function] = append(t.pending[function], t.newRecordLocked(function, sp, params))
}

// RecordExit closes the pending call of function that best matches sp.
// An exit that matches nothing is reported and otherwise ignored.
func (t *Tracer) RecordExit(function string, sp uint32) {
	t.mu.Lock()
	matched := t.removeClosestLocked(function, sp)
	t.mu.Unlock()

	if !matched {
		t.warnings.Warn().
			Str("function", function).
			Str("esp", hex32(sp)).
			Msgf("[WaitTrace] WARNING: Unmatched return for %s at ESP %s", function, hex32(sp))
	}
}

// RecordCount tallies a call site of a function whose return is not tracked.
func (t *Tracer) RecordCount(function string, sp uint32, params []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counters[function] = append(t.counters[function], t.newRecordLocked(function, sp, params))
}

// RecordSignal counts one notification of object.
func (t *Tracer) RecordSignal(object uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.signals[object]++
}

// Clear drops all pending calls, counters and signal tallies. Sequence ids
// keep increasing across clears.
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = make(map[string][]CallRecord)
	t.counters = make(map[string][]CallRecord)
	t.signals = make(map[uint32]uint64)
}

// Snapshot returns a deep copy of the tracer state.
func (t *Tracer) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return State{
		Pending:  copyTable(t.pending),
		Counters: copyTable(t.counters),
		Signals:  copyTally(t.signals),
	}
}

func (t *Tracer) newRecordLocked(function string, sp uint32, params []uint32) CallRecord {
	rec := CallRecord{
		ID:           t.nextID,
		Function:     function,
		Params:       slices.Clone(params),
		StackPointer: sp,
	}
	t.nextID++
	return rec
}

// removeClosestLocked removes the record closed by an exit at sp.
// Caller must hold t.mu.
func (t *Tracer) removeClosestLocked(function string, sp uint32) bool {
	records, ok := t.pending[function]
	if !ok {
		return false
	}

	i := closestRecord(records, sp)
	if i < 0 {
		return false
	}

	records = slices.Delete(records, i, i+1)
	if len(records) == 0 {
		delete(t.pending, function)
	} else {
		t.pending[function] = records
	}
	return true
}

// closestRecord returns the index of the record an exit at sp closes, or -1.
// Records are scanned oldest first. An exact match wins outright; otherwise
// the first record with the smallest distance under StackThreshold wins.
func closestRecord(records []CallRecord, sp uint32) int {
	best := -1
	minDiff := uint32(StackThreshold)

	for i, rec := range records {
		diff := stackDistance(sp, rec.StackPointer)
		if diff == 0 {
			return i
		}
		if diff < minDiff {
			minDiff = diff
			best = i
		}
	}

	return best
}

func stackDistance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
