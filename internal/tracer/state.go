package tracer

import (
	"cmp"
	"encoding/binary"
	"maps"
	"slices"
	"strconv"

	"github.com/zeebo/xxh3"
)

// State is a point-in-time copy of everything a Tracer holds.
type State struct {
	Pending  map[string][]CallRecord
	Counters map[string][]CallRecord
	Signals  map[uint32]uint64
}

// CallSite groups counter records that share the same arguments and stack
// pointer.
type CallSite struct {
	Params       []uint32
	StackPointer uint32
	IDs          []uint64
}

// Empty reports whether the state holds no records and no signals.
func (s State) Empty() bool {
	return len(s.Pending) == 0 && len(s.Counters) == 0 && len(s.Signals) == 0
}

// PendingCount returns the number of outstanding calls across all functions.
func (s State) PendingCount() int {
	n := 0
	for _, records := range s.Pending {
		n += len(records)
	}
	return n
}

// CallSites aggregates the counter records of function by (params, stack
// pointer). Sites are ordered by params, then stack pointer; ids keep
// creation order.
func (s State) CallSites(function string) []CallSite {
	records := s.Counters[function]
	if len(records) == 0 {
		return nil
	}

	buckets := make(map[uint64][]int)
	var sites []CallSite

	for _, rec := range records {
		h := hashCallKey(rec.Params, rec.StackPointer)

		found := -1
		for _, idx := range buckets[h] {
			if sites[idx].StackPointer == rec.StackPointer && slices.Equal(sites[idx].Params, rec.Params) {
				found = idx
				break
			}
		}

		if found < 0 {
			found = len(sites)
			sites = append(sites, CallSite{
				Params:       slices.Clone(rec.Params),
				StackPointer: rec.StackPointer,
			})
			buckets[h] = append(buckets[h], found)
		}
		sites[found].IDs = append(sites[found].IDs, rec.ID)
	}

	slices.SortFunc(sites, func(a, b CallSite) int {
		if c := slices.Compare(a.Params, b.Params); c != 0 {
			return c
		}
		return cmp.Compare(a.StackPointer, b.StackPointer)
	})
	return sites
}

func hashCallKey(params []uint32, sp uint32) uint64 {
	buf := make([]byte, 0, 4*(len(params)+1))
	for _, p := range params {
		buf = binary.LittleEndian.AppendUint32(buf, p)
	}
	buf = binary.LittleEndian.AppendUint32(buf, sp)
	return xxh3.Hash(buf)
}

func copyTable(src map[string][]CallRecord) map[string][]CallRecord {
	dst := make(map[string][]CallRecord, len(src))
	for function, records := range src {
		cp := make([]CallRecord, len(records))
		for i, rec := range records {
			rec.Params = slices.Clone(rec.Params)
			cp[i] = rec
		}
		dst[function] = cp
	}
	return dst
}

func copyTally(src map[uint32]uint64) map[uint32]uint64 {
	return maps.Clone(src)
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func hex32(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}
