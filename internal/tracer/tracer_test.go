package tracer

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/waittrace/internal/testutil"
)

func newTestTracer() *Tracer {
	return New(zerolog.Nop(), WithOutput(io.Discard))
}

func pendingSPs(s State, function string) []uint32 {
	var sps []uint32
	for _, rec := range s.Pending[function] {
		sps = append(sps, rec.StackPointer)
	}
	return sps
}

func TestRecordEntry_AssignsSequentialIDs(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("KeWaitForSingleObject", 0x1000, []uint32{0xaa})
	tr.RecordEntry("KeWaitForSingleObject", 0x1000, []uint32{0xaa})
	tr.RecordEntry("KeWaitForMultipleObjects", 0x2000, nil)

	s := tr.Snapshot()
	require.Len(t, s.Pending["KeWaitForSingleObject"], 2)
	require.Len(t, s.Pending["KeWaitForMultipleObjects"], 1)

	assert.Equal(t, uint64(0), s.Pending["KeWaitForSingleObject"][0].ID)
	assert.Equal(t, uint64(1), s.Pending["KeWaitForSingleObject"][1].ID)
	assert.Equal(t, uint64(2), s.Pending["KeWaitForMultipleObjects"][0].ID)
	assert.Equal(t, []uint32{0xaa}, s.Pending["KeWaitForSingleObject"][1].Params)
}

func TestRecordEntry_CopiesParams(t *testing.T) {
	tr := newTestTracer()

	params := []uint32{1, 2}
	tr.RecordEntry("f", 0x100, params)
	params[0] = 99

	assert.Equal(t, []uint32{1, 2}, tr.Snapshot().Pending["f"][0].Params)
}

func TestRecordEntry_EmptyFunctionName(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("", 0x100, nil)
	tr.RecordExit("", 0x100)

	assert.True(t, tr.Snapshot().Empty())
}

func TestRecordExit_ExactMatchWins(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 1000, nil)
	tr.RecordEntry("f", 1001, nil)
	tr.RecordEntry("f", 1010, nil)

	tr.RecordExit("f", 1010)

	assert.Equal(t, []uint32{1000, 1001}, pendingSPs(tr.Snapshot(), "f"))
}

func TestRecordExit_Threshold(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 100, nil)
	tr.RecordEntry("f", 500, nil)

	tr.RecordExit("f", 120)
	assert.Equal(t, []uint32{500}, pendingSPs(tr.Snapshot(), "f"))

	tr.RecordEntry("f", 100, nil)
	tr.RecordExit("f", 1000)
	assert.Equal(t, []uint32{500, 100}, pendingSPs(tr.Snapshot(), "f"))
}

func TestRecordExit_DistanceAtThresholdDoesNotMatch(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 0x1000, nil)
	tr.RecordExit("f", 0x1000+StackThreshold)
	assert.Len(t, tr.Snapshot().Pending["f"], 1)

	tr.RecordExit("f", 0x1000+StackThreshold-1)
	assert.Empty(t, tr.Snapshot().Pending["f"])
}

func TestRecordExit_TieBreakPrefersOldest(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 200, nil)
	tr.RecordEntry("f", 200, nil)

	tr.RecordExit("f", 200)

	s := tr.Snapshot()
	require.Len(t, s.Pending["f"], 1)
	assert.Equal(t, uint64(1), s.Pending["f"][0].ID)
}

func TestRecordExit_EqualNonZeroDistanceKeepsFirst(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 90, nil)
	tr.RecordEntry("f", 110, nil)

	tr.RecordExit("f", 100)

	s := tr.Snapshot()
	require.Len(t, s.Pending["f"], 1)
	assert.Equal(t, uint32(110), s.Pending["f"][0].StackPointer)
}

func TestRecordExit_UnsignedWrapDistance(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 0xfffffff0, nil)
	tr.RecordExit("f", 0x10)

	assert.Len(t, tr.Snapshot().Pending["f"], 1)
}

func TestRecordExit_IsolatedByFunction(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("A", 0x5000, nil)
	tr.RecordExit("B", 0x5000)

	s := tr.Snapshot()
	assert.Len(t, s.Pending["A"], 1)
	assert.NotContains(t, s.Pending, "B")
}

func TestRecordExit_UnmatchedWarning(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger(t)
	tr := New(logger, WithOutput(io.Discard))

	tr.RecordExit("KeWaitForSingleObject", 0xd0001000)

	assert.Contains(t, logs.String(), "Unmatched return for KeWaitForSingleObject at ESP 0xd0001000")
	assert.Contains(t, logs.String(), `"level":"warn"`)

	logs.Reset()
	tr.RecordEntry("KeWaitForSingleObject", 0x100, nil)
	tr.RecordExit("KeWaitForSingleObject", 0x10000)

	assert.Contains(t, logs.String(), "Unmatched return")
	assert.Len(t, tr.Snapshot().Pending["KeWaitForSingleObject"], 1)
}

func TestRecordExit_UnmatchedWarningAtErrorLevel(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger(t)
	tr := New(logger.Level(zerolog.ErrorLevel), WithOutput(io.Discard))

	tr.RecordExit("KeWaitForMultipleObjects", 0xd0002000)

	assert.Contains(t, logs.String(), "Unmatched return for KeWaitForMultipleObjects at ESP 0xd0002000")
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"component":"tracer"`)
}

func TestRecordExit_LastRecordRemovesFunction(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 0x100, nil)
	tr.RecordExit("f", 0x104)

	assert.NotContains(t, tr.Snapshot().Pending, "f")
}

func TestRecordCount_NeverMatchedByExit(t *testing.T) {
	tr := newTestTracer()

	tr.RecordCount("KeSetEvent", 0x100, []uint32{1})
	tr.RecordExit("KeSetEvent", 0x100)

	s := tr.Snapshot()
	assert.Len(t, s.Counters["KeSetEvent"], 1)
	assert.Empty(t, s.Pending)
}

func TestRecordCount_Aggregation(t *testing.T) {
	tr := newTestTracer()

	tr.RecordCount("C", 0x40, []uint32{1, 2})
	tr.RecordCount("C", 0x40, []uint32{1, 2})
	tr.RecordCount("C", 0x40, []uint32{9})

	sites := tr.Snapshot().CallSites("C")
	require.Len(t, sites, 2)

	assert.Equal(t, []uint32{1, 2}, sites[0].Params)
	assert.Equal(t, uint32(0x40), sites[0].StackPointer)
	assert.Equal(t, []uint64{0, 1}, sites[0].IDs)

	assert.Equal(t, []uint32{9}, sites[1].Params)
	assert.Equal(t, []uint64{2}, sites[1].IDs)
}

func TestCallSites_OrderedByParamsThenStackPointer(t *testing.T) {
	tr := newTestTracer()

	tr.RecordCount("C", 0x20, []uint32{5})
	tr.RecordCount("C", 0x10, []uint32{5})
	tr.RecordCount("C", 0x30, []uint32{1, 7})
	tr.RecordCount("C", 0x30, []uint32{1})

	sites := tr.Snapshot().CallSites("C")
	require.Len(t, sites, 4)

	assert.Equal(t, []uint32{1}, sites[0].Params)
	assert.Equal(t, []uint32{1, 7}, sites[1].Params)
	assert.Equal(t, uint32(0x10), sites[2].StackPointer)
	assert.Equal(t, uint32(0x20), sites[3].StackPointer)
	assert.Nil(t, tr.Snapshot().CallSites("missing"))
}

func TestRecordSignal_Tally(t *testing.T) {
	tr := newTestTracer()

	for i := 0; i < 10; i++ {
		tr.RecordSignal(0xabcd)
	}

	s := tr.Snapshot()
	assert.Equal(t, map[uint32]uint64{0xabcd: 10}, s.Signals)
}

func TestClear(t *testing.T) {
	tr := newTestTracer()

	tr.RecordEntry("f", 0x100, []uint32{1})
	tr.RecordCount("g", 0x200, nil)
	tr.RecordSignal(7)

	tr.Clear()
	assert.True(t, tr.Snapshot().Empty())

	tr.RecordEntry("f", 0x100, nil)
	assert.Equal(t, uint64(2), tr.Snapshot().Pending["f"][0].ID, "ids are never reused")
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	tr := newTestTracer()
	tr.RecordEntry("f", 0x100, []uint32{1})

	s := tr.Snapshot()
	s.Pending["f"][0].Params[0] = 42
	delete(s.Pending, "f")

	assert.Equal(t, []uint32{1}, tr.Snapshot().Pending["f"][0].Params)
}

func TestConcurrentEntryExit(t *testing.T) {
	tr := newTestTracer()

	const (
		functions  = 8
		goroutines = 32
		iterations = 50
	)

	var wg sync.WaitGroup
	for f := 0; f < functions; f++ {
		name := fmt.Sprintf("func%d", f)
		for g := 0; g < goroutines; g++ {
			sp := uint32(0x10000 + g*0x1000)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < iterations; i++ {
					tr.RecordEntry(name, sp, []uint32{uint32(i)})
					tr.RecordSignal(uint32(g))
					tr.RecordExit(name, sp)
				}
			}()
		}
	}

	wg.Wait()

	s := tr.Snapshot()
	assert.Empty(t, s.Pending)
	assert.Len(t, s.Signals, goroutines)
	for _, count := range s.Signals {
		assert.Equal(t, uint64(functions*iterations), count)
	}
}

func TestConcurrentEntries_UniqueIDs(t *testing.T) {
	tr := newTestTracer()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.RecordEntry("f", uint32(i), nil)
				tr.RecordCount("c", uint32(i), nil)
			}
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	seen := make(map[uint64]bool)
	for _, recs := range [][]CallRecord{s.Pending["f"], s.Counters["c"]} {
		for i, rec := range recs {
			assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
			seen[rec.ID] = true
			if i > 0 {
				assert.Less(t, recs[i-1].ID, rec.ID, "records keep creation order")
			}
		}
	}
	assert.Len(t, seen, 3200)
}
