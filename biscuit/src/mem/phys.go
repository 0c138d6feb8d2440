package mem

import (
	"fmt"
	"sync"
	"sync/atomic"
)

/// Physpg_t describes a single physical page.
type Physpg_t struct {
	Refcnt int32
	// index into pgs of next page on free list
	nexti uint32
}

/// Physmem_t manages all physical memory for the system: a `[]uint64`
/// allocation bitmap (one bit per frame, spec.md §4.1/§8) backs both the
/// single-frame Refpg_new path and the AllocBlocks(n) contiguous allocator
/// in bitmap.go, plus a small recycle free list for page-table pages (the
/// teacher's Physmem_t, minus the per-CPU free lists and the Cpumask
/// TLB-shootdown bookkeeping -- both only meaningful with real concurrent
/// CPUs loading pmaps into cr3).
type Physmem_t struct {
	Pgs     []Physpg_t
	startn  uint32
	nframes int
	bitmap  []uint64 // one bit per frame; 1 = allocated
	freeCnt int32
	pmaps   uint32
	pmaplen int32
	sync.Mutex
	Dmapinit bool
	arena    *Arena
}

func _pg2pgn(p_pg Pa_t) uint32 {
	return uint32(p_pg >> PGSHIFT)
}

/// Refaddr returns the refcount pointer and index for the given page.
func (phys *Physmem_t) Refaddr(p_pg Pa_t) (*int32, uint32) {
	idx := _pg2pgn(p_pg) - phys.startn
	return &phys.Pgs[idx].Refcnt, idx
}

/// Refcnt returns the current reference count of a page.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	ref, _ := phys.Refaddr(p_pg)
	return int(atomic.LoadInt32(ref))
}

/// Refup increments the reference count of a page.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	ref, _ := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, 1)
	if c <= 0 {
		panic("refup of unreferenced page")
	}
}

// returns true if p_pg's refcount reached zero (and so should be released
// back to the bitmap or pmaps free list) and the index of the page in the
// pgs array
func (phys *Physmem_t) _refdec(p_pg Pa_t) (bool, uint32) {
	ref, idx := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, -1)
	if c < 0 {
		panic("refdown of unreferenced page")
	}
	return c == 0, idx
}

/// Refdown decrements the reference count of a page.
/// It returns true when the page is freed.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	return phys._phys_put(p_pg, false)
}

/// Zeropg is a global zero-filled page used for allocations.
var Zeropg *Pg_t

/// Refpg_new allocates a zeroed page and returns its mapping and address.
/// The returned page's refcount starts at 1.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	if !phys.Dmapinit {
		panic("refpg_new before Phys_init")
	}
	pg, p_pg, ok := phys._refpg_new()
	if !ok {
		return nil, 0, false
	}
	*pg = *Zeropg
	return pg, p_pg, true
}

/// Refpg_new_nozero allocates an uninitialised page.
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	return phys._refpg_new()
}

// _refpg_new allocates a single frame through the bitmap (AllocBlock) and
// seeds its refcount to 1, the entry point both Refpg_new and
// Refpg_new_nozero share.
func (phys *Physmem_t) _refpg_new() (*Pg_t, Pa_t, bool) {
	if !phys.Dmapinit {
		panic("dmap not initted")
	}
	p_pg, ok := phys.AllocBlock()
	if !ok {
		return nil, 0, false
	}
	ref, _ := phys.Refaddr(p_pg)
	atomic.StoreInt32(ref, 1)
	return phys.Dmap(p_pg), p_pg, true
}

/// Pmap_new allocates a new page map for the kernel, preferring a recycled
/// page-table page off the pmaps free list before falling back to a fresh
/// bitmap-backed frame.
func (phys *Physmem_t) Pmap_new() (*Pmap_t, Pa_t, bool) {
	a, b, ok := phys._pmapfree_new()
	if !ok {
		a, b, ok = phys.Refpg_new()
	}
	return pg2pmap(a), b, ok
}

// _pmapfree_new pops a page off the small pmaps recycle list -- page-table
// pages that Dec_pmap has already freed but kept out of the main bitmap so
// Pmap_new can hand them back out without an allocation.
func (phys *Physmem_t) _pmapfree_new() (*Pg_t, Pa_t, bool) {
	if !phys.Dmapinit {
		panic("dmap not initted")
	}

	var p_pg Pa_t
	var ok bool
	phys.Lock()
	ff := phys.pmaps
	if ff != ^uint32(0) {
		p_pg = Pa_t(ff+phys.startn) << PGSHIFT
		phys.pmaps = phys.Pgs[ff].nexti
		ok = true
		if phys.Pgs[ff].Refcnt < 0 {
			panic("negative ref count")
		}
		phys.Pgs[ff].Refcnt = 1
		phys.pmaplen--
		if phys.pmaplen < 0 {
			panic("free count underflow")
		}
	}
	phys.Unlock()
	if ok {
		return phys.Dmap(p_pg), p_pg, true
	}
	return nil, 0, false
}

// _phys_put drops p_pg's refcount and, once it reaches zero, either
// recycles it onto the pmaps free list or clears its bitmap bit, returning
// true iff the page was actually released.
func (phys *Physmem_t) _phys_put(p_pg Pa_t, ispmap bool) bool {
	add, idx := phys._refdec(p_pg)
	if !add {
		return false
	}
	if ispmap {
		phys.Lock()
		phys.Pgs[idx].nexti = phys.pmaps
		phys.pmaps = idx
		phys.pmaplen++
		phys.Unlock()
		return true
	}
	phys.FreeBlock(p_pg)
	return true
}

/// Dec_pmap decreases the reference count of a pmap and frees it if unused.
func (phys *Physmem_t) Dec_pmap(p_pmap Pa_t) {
	phys._phys_put(p_pmap, true)
}

/// Pgcount reports the number of free frames and free pmap pages.
func (phys *Physmem_t) Pgcount() (int, int) {
	phys.Lock()
	pmaplen := int(phys.pmaplen)
	phys.Unlock()
	return phys.Count(), pmaplen
}

/// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

/// Phys_init initializes the global physical memory allocator with npgs
/// simulated frames, starting at frame number startn.
func Phys_init(npgs int, startn uint32) *Physmem_t {
	phys := Physmem
	phys.arena = newArena()
	phys.Pgs = make([]Physpg_t, npgs)
	phys.startn = startn
	phys.nframes = npgs
	phys.bitmap = make([]uint64, (npgs+63)/64)
	phys.freeCnt = int32(npgs)
	phys.pmaps = ^uint32(0)
	phys.pmaplen = 0
	phys.Dmapinit = true

	Zeropg = new(Pg_t)
	fmt.Printf("Simulated %v frames (%vMB)\n", npgs, npgs*PGSIZE>>20)
	return phys
}
