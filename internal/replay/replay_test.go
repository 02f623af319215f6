package replay

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/waittrace/internal/config"
	"github.com/coral-mesh/waittrace/internal/hooks"
	"github.com/coral-mesh/waittrace/internal/testutil"
	"github.com/coral-mesh/waittrace/internal/tracer"
)

const sampleTrace = `
events:
  - {vcpu: 0, pc: 0x80022f5a, esp: 0xd0001000, stack: {4: 0x80045000}}
  - {vcpu: 1, pc: 0x80022c05, esp: 0xd0102000, stack: {8: 0x80046000}}
  - {vcpu: 1, pc: 0x80023baa, esp: 0xd0101ff0, stack: {4: 0x80047000}}
  - {vcpu: 0, pc: 0x800231f9, esp: 0xd0001008}
  - {vcpu: 2, pc: 0x80022f5a, esp: 0xd0201000}
`

func newPipeline(t *testing.T) (*tracer.Tracer, *hooks.Dispatcher, *Runner) {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	table, err := hooks.NewTable(config.DefaultConfig().HookSpecs())
	require.NoError(t, err)

	tr := tracer.New(logger, tracer.WithOutput(io.Discard))
	d := hooks.NewDispatcher(logger, table, tr)
	return tr, d, NewRunner(logger, d)
}

func TestRunner_Run(t *testing.T) {
	tr, d, runner := newPipeline(t)

	trace, err := Parse([]byte(sampleTrace))
	require.NoError(t, err)

	ctx := testutil.NewTestContext(t)

	res, err := runner.Run(ctx, trace)
	require.NoError(t, err)
	assert.Equal(t, Result{VCPUs: 3, Events: 5, Instrumented: 7}, res)

	s := tr.Snapshot()
	assert.NotContains(t, s.Pending, "KeWaitForSingleObject")
	require.Len(t, s.Pending["KeWaitForMultipleObjects"], 1)
	assert.Equal(t, []uint32{0x80046000}, s.Pending["KeWaitForMultipleObjects"][0].Params)
	assert.Equal(t, uint32(0xd0102000), s.Pending["KeWaitForMultipleObjects"][0].StackPointer)
	assert.Equal(t, map[uint32]uint64{0x80047000: 1}, s.Signals)

	stats := d.Stats()
	assert.Equal(t, uint64(4), stats.Fired)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestRunner_RunWithBlocks(t *testing.T) {
	tr, d, runner := newPipeline(t)

	trace, err := Parse([]byte(`
blocks:
  - base: 0x80022f58
    code: "90 90 55 8b ff c3"
events:
  - {vcpu: 0, pc: 0x80022f5a, esp: 0x1000, stack: {4: 0xaa}}
  - {vcpu: 0, pc: 0x80023baa, esp: 0x1000, stack: {4: 0xbb}}
`))
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), trace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Instrumented)
	assert.Equal(t, 1, d.Stats().Instrumented)

	s := tr.Snapshot()
	assert.Len(t, s.Pending["KeWaitForSingleObject"], 1)
	assert.Empty(t, s.Signals, "KeSetEvent was never translated")
}

func TestRunner_RunCanceled(t *testing.T) {
	tr, _, runner := newPipeline(t)

	trace, err := Parse([]byte(sampleTrace))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Run(ctx, trace)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tr.Snapshot().Empty())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			data:    "events: [",
			wantErr: "failed to parse trace",
		},
		{
			name:    "bad hex",
			data:    "blocks: [{base: 0x1000, code: zz}]",
			wantErr: "blocks[0]: invalid code",
		},
		{
			name:    "empty code",
			data:    "blocks: [{base: 0x1000, code: ''}]",
			wantErr: "blocks[0]: code is empty",
		},
		{
			name:    "missing pc",
			data:    "events: [{vcpu: 0, esp: 0x10}]",
			wantErr: "events[0]: pc is required",
		},
		{
			name:    "negative vcpu",
			data:    "events: [{vcpu: -1, pc: 0x10}]",
			wantErr: "events[0]: vcpu cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := testutil.WriteFile(t, "trace.yaml", sampleTrace)

	trace, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, trace.Events, 5)
	assert.Equal(t, map[uint32]uint32{4: 0x80045000}, trace.Events[0].Stack)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFrameGuest_ReadMemory(t *testing.T) {
	g := frameGuest{ev: Event{ESP: 0x1000, Stack: map[uint32]uint32{4: 0x11223344}}}

	buf := make([]byte, 4)
	require.NoError(t, g.ReadMemory(0x1004, buf))
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, buf)

	assert.Error(t, g.ReadMemory(0x1008, buf))
	assert.Error(t, g.ReadMemory(0x0ffc, buf))
	assert.Error(t, g.ReadMemory(0x1004, make([]byte, 2)))
}

func TestRunner_ExampleTrace(t *testing.T) {
	tr, d, runner := newPipeline(t)

	trace, err := Load(filepath.Join("..", "..", "examples", "traces", "kernel_waits.yaml"))
	require.NoError(t, err)

	res, err := runner.Run(testutil.NewTestContext(t), trace)
	require.NoError(t, err)
	assert.Equal(t, 2, res.VCPUs)
	assert.Equal(t, 4, res.Instrumented)

	s := tr.Snapshot()
	assert.Equal(t, 1, s.PendingCount())
	require.Len(t, s.Pending["KeWaitForMultipleObjects"], 1)
	assert.Equal(t, []uint32{0xd0052f90}, s.Pending["KeWaitForMultipleObjects"][0].Params)
	assert.Equal(t, map[uint32]uint64{0x8004a120: 1}, s.Signals)
	assert.Equal(t, uint64(0), d.Stats().Dropped)
}
