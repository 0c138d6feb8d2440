// Package kheap implements the kernel's own dynamic allocator: a first-fit
// free-list heap grown one simulated physical frame at a time from
// mem.Physmem, used for kernel-internal allocations that don't fit the
// fixed-size page abstraction (TCB/PCB bookkeeping structures, VFS
// directory entries, socket buffers above a page). On exhaustion it
// notifies oommsg.OomCh exactly as the teacher's allocator does, giving a
// reclaimer a chance to free pages before the caller gives up.
package kheap

import (
	"sync"

	"defs"
	"mem"
	"oommsg"
	"stats"
)

type span struct {
	off int
	len int
}

/// Stats_t holds the malloc/free/grow counters kept the way the teacher's
/// stats.Counter_t fields on its own allocator do, printable via
/// stats.Stats2String for a meminfo-style dump (spec.md §4.8).
type Stats_t struct {
	Nmalloc stats.Counter_t
	Nfree   stats.Counter_t
	Ngrow   stats.Counter_t
}

/// Heap is a growable first-fit allocator. The zero value is not usable;
/// call New.
type Heap struct {
	sync.Mutex
	arena []byte
	pages []*mem.Pg_t
	free  []span
	used  map[int]int // offset -> length, for Free
	Stats Stats_t
}

/// New creates an empty heap.
func New() *Heap {
	return &Heap{used: make(map[int]int)}
}

/// StatString renders h's allocation counters for diagnostics.
func (h *Heap) StatString() string {
	return stats.Stats2String(h.Stats)
}

/// ResetStats zeroes h's counters, backing the SYS_CLEAR syscall's "clear
/// accumulated introspection counters" semantics (spec.md §6).
func (h *Heap) ResetStats() {
	h.Lock()
	defer h.Unlock()
	h.Stats = Stats_t{}
}

// growLocked appends one more simulated frame to the arena and folds it
// into the free list, merging with a trailing free span if adjacent.
func (h *Heap) growLocked() bool {
	pg, _, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		return false
	}
	off := len(h.arena)
	h.pages = append(h.pages, pg)
	h.arena = append(h.arena, mem.Pg2bytes(pg)[:]...)
	h.Stats.Ngrow.Inc()
	if n := len(h.free); n > 0 && h.free[n-1].off+h.free[n-1].len == off {
		h.free[n-1].len += mem.PGSIZE
	} else {
		h.free = append(h.free, span{off: off, len: mem.PGSIZE})
	}
	return true
}

/// Malloc allocates n bytes and returns an offset usable with At/Free. When
/// the arena cannot grow it sends a request on oommsg.OomCh and waits for
/// the reclaimer's answer: it retries on true and gives up with ENOMEM on
/// false. With no reclaimer receiving on oommsg.OomCh it blocks there.
func (h *Heap) Malloc(n int) (int, defs.Err_t) {
	if n <= 0 {
		panic("bad malloc size")
	}
	for {
		h.Lock()
		for i, s := range h.free {
			if s.len < n {
				continue
			}
			off := s.off
			if s.len == n {
				h.free = append(h.free[:i], h.free[i+1:]...)
			} else {
				h.free[i] = span{off: s.off + n, len: s.len - n}
			}
			h.used[off] = n
			h.Stats.Nmalloc.Inc()
			h.Unlock()
			return off, 0
		}
		if h.growLocked() {
			h.Unlock()
			continue
		}
		h.Unlock()

		resume := make(chan bool)
		oommsg.OomCh <- oommsg.Oommsg_t{Need: n, Resume: resume}
		if !<-resume {
			return 0, -defs.ENOMEM
		}
	}
}

/// Free releases the allocation at off, merging with adjacent free spans.
func (h *Heap) Free(off int) {
	h.Lock()
	defer h.Unlock()
	n, ok := h.used[off]
	if !ok {
		panic("double free or invalid free")
	}
	delete(h.used, off)
	h.Stats.Nfree.Inc()
	ns := span{off: off, len: n}
	out := make([]span, 0, len(h.free)+1)
	inserted := false
	for _, s := range h.free {
		if !inserted && ns.off < s.off {
			out = append(out, ns)
			inserted = true
		}
		out = append(out, s)
	}
	if !inserted {
		out = append(out, ns)
	}
	h.free = coalesce(out)
}

func coalesce(spans []span) []span {
	if len(spans) == 0 {
		return spans
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if last.off+last.len == s.off {
			last.len += s.len
		} else {
			out = append(out, s)
		}
	}
	return out
}

/// At returns the backing byte slice for a live allocation.
func (h *Heap) At(off int) []byte {
	h.Lock()
	defer h.Unlock()
	n, ok := h.used[off]
	if !ok {
		panic("invalid heap offset")
	}
	return h.arena[off : off+n]
}

/// Size returns the total number of bytes the heap has grown to.
func (h *Heap) Size() int {
	h.Lock()
	defer h.Unlock()
	return len(h.arena)
}

/// InUse returns the number of bytes currently allocated.
func (h *Heap) InUse() int {
	h.Lock()
	defer h.Unlock()
	n := 0
	for _, l := range h.used {
		n += l
	}
	return n
}
