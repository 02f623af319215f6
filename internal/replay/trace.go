// Package replay feeds recorded guest hook hits through the hook dispatcher,
// so the tracer can be exercised without a running emulator.
package replay

import (
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/waittrace/internal/safe"
)

// Trace is a recording of translated code blocks and hook executions.
type Trace struct {
	// Blocks are scanned for hooked instructions before any event runs.
	// When empty, every configured hook is instrumented.
	Blocks []Block `yaml:"blocks,omitempty"`
	Events []Event `yaml:"events"`
}

// Block is a run of guest code as seen by the translator.
type Block struct {
	Base uint64 `yaml:"base"`
	Code string `yaml:"code"` // hex encoded bytes

	bytes []byte
}

// Event is one execution of an instrumented instruction.
type Event struct {
	VCPU int    `yaml:"vcpu"`
	PC   uint64 `yaml:"pc"`
	ESP  uint32 `yaml:"esp"`
	// Stack holds the 32-bit words readable at esp+offset.
	Stack map[uint32]uint32 `yaml:"stack,omitempty"`
}

// Bytes returns the decoded code of the block.
func (b *Block) Bytes() []byte {
	return b.bytes
}

// Load reads and parses a trace file.
func Load(path string) (*Trace, error) {
	data, err := safe.ReadFile(path, safe.MaxTraceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}

	trace, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	return trace, nil
}

// Parse decodes and validates a YAML trace.
func Parse(data []byte) (*Trace, error) {
	var trace Trace
	if err := yaml.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace: %w", err)
	}

	for i := range trace.Blocks {
		b := &trace.Blocks[i]
		code, err := hex.DecodeString(strings.Join(strings.Fields(b.Code), ""))
		if err != nil {
			return nil, fmt.Errorf("blocks[%d]: invalid code: %w", i, err)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("blocks[%d]: code is empty", i)
		}
		b.bytes = code
	}

	for i, ev := range trace.Events {
		if ev.PC == 0 {
			return nil, fmt.Errorf("events[%d]: pc is required", i)
		}
		if ev.VCPU < 0 {
			return nil, fmt.Errorf("events[%d]: vcpu cannot be negative", i)
		}
	}

	return &trace, nil
}

// streams splits events per vCPU, keeping file order within each vCPU.
func (t *Trace) streams() map[int][]Event {
	out := make(map[int][]Event)
	for _, ev := range t.Events {
		out[ev.VCPU] = append(out[ev.VCPU], ev)
	}
	return out
}
