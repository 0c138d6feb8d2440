package kheap

import (
	"strings"
	"testing"

	"mem"
)

func freshHeap(t *testing.T) *Heap {
	t.Helper()
	mem.Phys_init(64, 0)
	return New()
}

func TestMallocFreeRoundtrip(t *testing.T) {
	h := freshHeap(t)
	off, err := h.Malloc(128)
	if err != 0 {
		t.Fatalf("Malloc failed: %v", err)
	}
	buf := h.At(off)
	if len(buf) != 128 {
		t.Fatalf("At returned %d bytes, want 128", len(buf))
	}
	if h.InUse() != 128 {
		t.Fatalf("InUse = %d, want 128", h.InUse())
	}
	h.Free(off)
	if h.InUse() != 0 {
		t.Fatalf("InUse after Free = %d, want 0", h.InUse())
	}
}

func TestMallocGrowsArenaOnDemand(t *testing.T) {
	h := freshHeap(t)
	if h.Size() != 0 {
		t.Fatalf("fresh heap size = %d, want 0", h.Size())
	}
	if _, err := h.Malloc(mem.PGSIZE / 2); err != 0 {
		t.Fatalf("Malloc failed: %v", err)
	}
	if h.Size() < mem.PGSIZE/2 {
		t.Fatalf("heap did not grow: size = %d", h.Size())
	}
}

func TestFreeCoalescesAdjacentSpans(t *testing.T) {
	h := freshHeap(t)
	a, _ := h.Malloc(64)
	b, _ := h.Malloc(64)
	c, _ := h.Malloc(64)
	h.Free(a)
	h.Free(c)
	h.Free(b)

	// With every allocation freed and coalesced, a single large
	// allocation spanning all three should succeed without growing again.
	sizeBefore := h.Size()
	if _, err := h.Malloc(64 * 3); err != 0 {
		t.Fatalf("Malloc after coalesce failed: %v", err)
	}
	if h.Size() != sizeBefore {
		t.Fatalf("heap grew (%d -> %d) when coalesced space should have sufficed", sizeBefore, h.Size())
	}
}

func TestDoubleFreePanics(t *testing.T) {
	h := freshHeap(t)
	off, _ := h.Malloc(32)
	h.Free(off)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	h.Free(off)
}

func TestStatsCountMallocAndFree(t *testing.T) {
	h := freshHeap(t)
	off, _ := h.Malloc(16)
	h.Free(off)
	if h.Stats.Nmalloc != 1 || h.Stats.Nfree != 1 {
		t.Fatalf("Nmalloc = %d, Nfree = %d, want 1 and 1", h.Stats.Nmalloc, h.Stats.Nfree)
	}
	s := h.StatString()
	if s == "" {
		t.Fatal("StatString returned empty report")
	}
}

func TestResetStatsZeroesCounters(t *testing.T) {
	h := freshHeap(t)
	off, _ := h.Malloc(16)
	h.Free(off)
	h.ResetStats()
	if h.Stats.Nmalloc != 0 || h.Stats.Nfree != 0 {
		t.Fatal("ResetStats should zero all counters")
	}
}

func TestMemInfoStringReportsSize(t *testing.T) {
	h := freshHeap(t)
	h.Malloc(16)
	s := h.MemInfoString()
	if !strings.Contains(s, "4,096 bytes reserved") {
		t.Fatalf("MemInfoString = %q, want it to report 4,096 bytes reserved", s)
	}
}

func TestProfileOneSamplePerLiveAllocation(t *testing.T) {
	h := freshHeap(t)
	a, _ := h.Malloc(16)
	_, _ = h.Malloc(32)
	h.Free(a)

	p := h.Profile()
	if len(p.Sample) != 1 {
		t.Fatalf("Profile has %d samples, want 1 (only one live allocation)", len(p.Sample))
	}
}
