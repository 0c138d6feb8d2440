package mem

import "sync"

// Arena simulates physical RAM. The teacher's dmap.go used a CPU direct-map
// slot and runtime.Vtop/Pml4freeze to turn physical addresses into kernel
// virtual addresses backed by real frames from a patched Go runtime; this
// rewrite runs as an ordinary module, so there is no patched runtime handing
// out frames. Arena instead lazily allocates one *Pg_t per frame index the
// allocator hands out and keeps it in a map, giving every Pa_t a stable
// backing page for the lifetime of the process.
type Arena struct {
	sync.Mutex
	frames map[uint32]*Pg_t
}

func newArena() *Arena {
	return &Arena{frames: make(map[uint32]*Pg_t)}
}

// lookup returns the backing page for frame index idx, allocating it on
// first use. Every Pa_t the allocator has ever handed out round-trips
// through here, so a lazily created frame is indistinguishable from one
// that existed from boot.
func (a *Arena) lookup(idx uint32) *Pg_t {
	a.Lock()
	pg, ok := a.frames[idx]
	if !ok {
		pg = new(Pg_t)
		a.frames[idx] = pg
	}
	a.Unlock()
	return pg
}

/// Dmap converts a physical address into its backing page. The name and
/// signature match the teacher's direct-map accessor; the implementation
/// is an arena lookup instead of a CPU page-table walk.
func (phys *Physmem_t) Dmap(p Pa_t) *Pg_t {
	idx := _pg2pgn(p)
	return phys.arena.lookup(idx)
}

/// Dmap8 returns a byte slice mapped to the given physical address, offset
/// within the page like the teacher's version.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	pg := phys.Dmap(p)
	off := p & PGOFFSET
	bpg := Pg2bytes(pg)
	return bpg[off:]
}

/// Dmaplen returns l bytes starting at physical address p. Unlike the
/// teacher's single contiguous direct-map slice this may span several
/// arena frames, so it copies into a fresh buffer when the range crosses a
/// page boundary; callers that only ever touch a single page (the common
/// case -- PGSIZE-bounded I/O) get a zero-copy view of that page.
func Dmaplen(p Pa_t, l int) []uint8 {
	return Physmem.Dmaplen(p, l)
}

/// Dmaplen is the receiver form used internally once Physmem exists.
func (phys *Physmem_t) Dmaplen(p Pa_t, l int) []uint8 {
	off := int(p & PGOFFSET)
	if off+l <= PGSIZE {
		return phys.Dmap8(p)[:l]
	}
	out := make([]uint8, l)
	rem := l
	cur := p
	pos := 0
	for rem > 0 {
		coff := int(cur & PGOFFSET)
		n := PGSIZE - coff
		if n > rem {
			n = rem
		}
		copy(out[pos:pos+n], phys.Dmap8(cur)[:n])
		pos += n
		rem -= n
		cur += Pa_t(n)
	}
	return out
}
