// Package vm implements a process's virtual address space: a 4-level
// radix page table built from ordinary Go structs and walked explicitly,
// standing in for the teacher's recursively-mapped, CPU-walked pmap tree
// (there is no patched runtime to provide the recursive mapping trick or
// real page-fault delivery here). Every user mapping is established eagerly
// by the caller (elfload, process stack/heap setup) -- there is no
// copy-on-write or demand paging, since nothing in this kernel forks an
// address space.
package vm

import (
	"sync"
	"unsafe"

	"defs"
	"mem"
)

// PGSIZE/PGOFFSET etc. are re-exported under vm's own names for parity with
// the teacher's as.go, which referenced bare PTE_* constants.
const (
	PGOFFSET = mem.PGOFFSET
	PTE_P    = mem.PTE_P
	PTE_W    = mem.PTE_W
	PTE_U    = mem.PTE_U
	PTE_G    = mem.PTE_G
	PTE_PCD  = mem.PTE_PCD
	PTE_PS   = mem.PTE_PS
	PTE_ADDR = mem.PTE_ADDR
)

/// AS represents a process address space: its page table tree and the lock
/// protecting modifications to it. Named Vm_t in the teacher; kept here
/// under the shorter name SPEC_FULL.md uses for the same concept.
type AS struct {
	sync.Mutex

	Pmap   *mem.Pmap_t
	P_pmap mem.Pa_t

	pgfltaken bool
}

/// Vm_t is an alias kept for source compatibility with code written against
/// the teacher's naming.
type Vm_t = AS

/// Lock_pmap acquires the address space mutex.
func (as *AS) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

/// Unlock_pmap releases the address space mutex.
func (as *AS) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

/// Lockassert_pmap panics if the address space mutex is not held.
func (as *AS) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pgfl lock must be held")
	}
}

/// CreateDirectory allocates a fresh, empty top-level page table for a new
/// address space.
func CreateDirectory() (*AS, defs.Err_t) {
	pmap, p_pmap, ok := mem.Physmem.Pmap_new()
	if !ok {
		return nil, -defs.ENOMEM
	}
	return &AS{Pmap: pmap, P_pmap: p_pmap}, 0
}

/// FreeDirectory releases every user page mapped in this address space and
/// then the page table pages themselves.
func (as *AS) FreeDirectory() {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	freeLevel(as.Pmap, 3)
	mem.Physmem.Dec_pmap(as.P_pmap)
}

// freeLevel walks a page table level, decrementing refcounts on present
// user leaf pages and recursing into and freeing present subtables.
func freeLevel(pm *mem.Pmap_t, level int) {
	for i, pte := range pm {
		if pte&mem.PTE_P == 0 || pte&mem.PTE_U == 0 {
			continue
		}
		addr := pte & mem.PTE_ADDR
		if level == 0 {
			mem.Physmem.Refdown(addr)
		} else {
			sub := pg2pmap(mem.Physmem.Dmap(addr))
			freeLevel(sub, level-1)
			mem.Physmem.Dec_pmap(addr)
		}
		pm[i] = 0
	}
}

func pg2pmap(pg *mem.Pg_t) *mem.Pmap_t {
	return (*mem.Pmap_t)(unsafe.Pointer(pg))
}

// walkBits splits a canonical virtual address into its four 9-bit radix
// indices plus the page offset, matching the teacher's pgbits helper.
func walkBits(va uintptr) (l4, l3, l2, l1 int) {
	return int((va >> 39) & 0x1ff), int((va >> 30) & 0x1ff),
		int((va >> 21) & 0x1ff), int((va >> 12) & 0x1ff)
}

// walk finds (or, if create is set, creates) the PTE for va, returning a
// pointer into the relevant leaf Pmap_t.
func (as *AS) walk(va uintptr, create bool) *mem.Pa_t {
	l4, l3, l2, l1 := walkBits(va)
	cur := as.Pmap
	idxs := []int{l4, l3, l2}
	for _, idx := range idxs {
		pte := &cur[idx]
		if *pte&mem.PTE_P == 0 {
			if !create {
				return nil
			}
			_, p_pg, ok := mem.Physmem.Pmap_new()
			if !ok {
				return nil
			}
			*pte = p_pg | mem.PTE_P | mem.PTE_W | mem.PTE_U
		}
		cur = pg2pmap(mem.Physmem.Dmap(*pte & mem.PTE_ADDR))
	}
	return &cur[l1]
}

/// MapPage installs a mapping for the page starting at virtual address va
/// to physical page p_pg with the given permission bits (PTE_W/PTE_U are
/// meaningful; PTE_P is added automatically). p_pg's reference count is
/// incremented on success.
func (as *AS) MapPage(va uintptr, p_pg mem.Pa_t, perms mem.Pa_t) defs.Err_t {
	as.Lockassert_pmap()
	if va&uintptr(mem.PGOFFSET) != 0 {
		panic("va not page aligned")
	}
	pte := as.walk(va, true)
	if pte == nil {
		return -defs.ENOMEM
	}
	if *pte&mem.PTE_P != 0 {
		old := *pte & mem.PTE_ADDR
		mem.Physmem.Refdown(old)
	}
	mem.Physmem.Refup(p_pg)
	*pte = p_pg | perms | mem.PTE_P
	return 0
}

/// UnmapPage removes the mapping at va, if any, dropping the backing
/// page's reference count. It reports whether a mapping was removed.
func (as *AS) UnmapPage(va uintptr) bool {
	as.Lockassert_pmap()
	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return false
	}
	old := *pte & mem.PTE_ADDR
	mem.Physmem.Refdown(old)
	*pte = 0
	return true
}

/// IsMapped reports whether va has a present mapping.
func (as *AS) IsMapped(va uintptr) bool {
	as.Lockassert_pmap()
	pte := as.walk(va, false)
	return pte != nil && *pte&mem.PTE_P != 0
}

// pageFor returns the byte slice for the page backing va, starting at the
// page-aligned offset within that page corresponding to va, or EFAULT if
// unmapped.
func (as *AS) pageFor(va uintptr) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()
	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return nil, -defs.EFAULT
	}
	pg := mem.Physmem.Dmap(*pte & mem.PTE_ADDR)
	bpg := mem.Pg2bytes(pg)
	off := va & uintptr(mem.PGOFFSET)
	return bpg[off:], 0
}

/// CopyTo copies src into this address space starting at uva, crossing
/// page boundaries as needed. It returns EFAULT on the first unmapped
/// page it encounters.
func (as *AS) CopyTo(uva uintptr, src []uint8) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for len(src) > 0 {
		dst, err := as.pageFor(uva)
		if err != 0 {
			return err
		}
		n := copy(dst, src)
		src = src[n:]
		uva += uintptr(n)
	}
	return 0
}

/// CopyFrom copies len(dst) bytes out of this address space starting at
/// uva into dst.
func (as *AS) CopyFrom(dst []uint8, uva uintptr) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for len(dst) > 0 {
		src, err := as.pageFor(uva)
		if err != 0 {
			return err
		}
		n := copy(dst, src)
		dst = dst[n:]
		uva += uintptr(n)
	}
	return 0
}

/// MemsetIn zeroes n bytes of user memory starting at uva.
func (as *AS) MemsetIn(uva uintptr, n int) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for n > 0 {
		dst, err := as.pageFor(uva)
		if err != 0 {
			return err
		}
		c := len(dst)
		if c > n {
			c = n
		}
		for i := 0; i < c; i++ {
			dst[i] = 0
		}
		n -= c
		uva += uintptr(c)
	}
	return 0
}

/// Userstr copies a NUL-terminated string from user memory, up to lenmax
/// bytes, mirroring the teacher's Vm_t.Userstr.
func (as *AS) Userstr(uva uintptr, lenmax int) (string, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	var out []byte
	for len(out) < lenmax {
		b, err := as.pageFor(uva)
		if err != 0 {
			return "", err
		}
		for _, c := range b {
			if c == 0 {
				return string(out), 0
			}
			out = append(out, c)
			if len(out) >= lenmax {
				return "", -defs.EINVAL
			}
		}
		uva += uintptr(len(b))
	}
	return "", -defs.EINVAL
}
