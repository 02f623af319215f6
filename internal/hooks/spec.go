package hooks

import (
	"errors"
	"fmt"
)

// MaxArguments is the most stack arguments a single hook may capture.
const MaxArguments = 16

// Kind selects how a hooked function is traced.
type Kind string

const (
	// KindWait traces a blocking call: entries are held until a matching exit.
	KindWait Kind = "wait"
	// KindCount tallies call sites without tracking returns.
	KindCount Kind = "count"
	// KindSignal tallies the object passed as the first captured argument.
	KindSignal Kind = "signal"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWait, KindCount, KindSignal:
		return true
	}
	return false
}

// Spec describes one traced function.
type Spec struct {
	Function string
	Kind     Kind
	// Entry is the address of the first instruction of the function.
	Entry uint64
	// Exits are the return and raise paths. Only valid for KindWait.
	Exits []uint64
	// ArgOffsets are byte offsets from the stack pointer at entry of each
	// 32-bit argument to capture.
	ArgOffsets []uint32
}

// Validate checks a spec for internal consistency.
func (s Spec) Validate() error {
	var errs []error

	if s.Function == "" {
		errs = append(errs, errors.New("function name is required"))
	}
	if !s.Kind.Valid() {
		errs = append(errs, fmt.Errorf("unknown kind %q", s.Kind))
	}
	if s.Entry == 0 {
		errs = append(errs, errors.New("entry address is required"))
	}
	if len(s.ArgOffsets) > MaxArguments {
		errs = append(errs, fmt.Errorf("too many arguments (%d), maximum is %d", len(s.ArgOffsets), MaxArguments))
	}
	if s.Kind != KindWait && len(s.Exits) > 0 {
		errs = append(errs, fmt.Errorf("exit addresses are only allowed for %q hooks", KindWait))
	}
	if s.Kind == KindSignal && len(s.ArgOffsets) != 1 {
		errs = append(errs, fmt.Errorf("%q hooks capture exactly one argument, got %d", KindSignal, len(s.ArgOffsets)))
	}
	for _, exit := range s.Exits {
		if exit == 0 {
			errs = append(errs, errors.New("exit address cannot be zero"))
		}
	}

	if len(errs) > 0 {
		name := s.Function
		if name == "" {
			name = "<unnamed>"
		}
		return fmt.Errorf("hook %s: %w", name, errors.Join(errs...))
	}
	return nil
}
