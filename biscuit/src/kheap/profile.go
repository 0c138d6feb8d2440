package kheap

import (
	"time"

	"github.com/google/pprof/profile"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Profile renders the heap's live allocations as a pprof profile.Profile
// with two sample types ("objects"/count and "space"/bytes), one sample
// per currently live allocation, so the meminfo/ps-style console introspection syscalls
// (spec.md §4.8, §6) can hand a caller something a standard pprof tool can
// open directly instead of an ad-hoc text dump.
func (h *Heap) Profile() *profile.Profile {
	h.Lock()
	offs := make([]int, 0, len(h.used))
	for off := range h.used {
		offs = append(offs, off)
	}
	h.Unlock()

	loc := &profile.Location{ID: 1}
	fn := &profile.Function{ID: 1, Name: "kheap.Malloc"}
	loc.Line = []profile.Line{{Function: fn, Line: 1}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "objects", Unit: "count"},
			{Type: "space", Unit: "bytes"},
		},
		Function:   []*profile.Function{fn},
		Location:   []*profile.Location{loc},
		TimeNanos:  time.Now().UnixNano(),
		PeriodType: &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:     1,
	}
	for _, off := range offs {
		h.Lock()
		n := h.used[off]
		h.Unlock()
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1, int64(n)},
		})
	}
	return p
}

// MemInfoString renders the heap's size/in-use byte counts with
// locale-aware thousands separators, the way a userspace free(1) would,
// for the SYS_MEMINFO console report (spec.md §6).
func (h *Heap) MemInfoString() string {
	h.Lock()
	size := len(h.arena)
	inUse := 0
	for _, l := range h.used {
		inUse += l
	}
	h.Unlock()
	p := message.NewPrinter(language.English)
	return p.Sprintf("heap: %d bytes reserved, %d bytes in use\n%s", size, inUse, h.StatString())
}
