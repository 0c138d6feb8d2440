package mem

import "unsafe"

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// PTE_P marks a page as present.
const PTE_P Pa_t = 1 << 0

/// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 1

/// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 2

/// PTE_G marks a global page.
const PTE_G Pa_t = 1 << 8

/// PTE_PCD disables caching for the page.
const PTE_PCD Pa_t = 1 << 4

/// PTE_PS indicates a large page.
const PTE_PS Pa_t = 1 << 7

/// PTE_ADDR extracts the address bits of a PTE.
const PTE_ADDR Pa_t = PGMASK

/// Pa_t represents a physical address. In the teacher this indexes real RAM;
/// here it indexes into a Physmem_t's Arena (arena.go) -- a page-granular
/// simulation of physical memory, since there is no patched runtime handing
/// out real frames.
type Pa_t uintptr

/// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

/// Pg_t is a generic page of ints.
type Pg_t [512]int

/// Pmap_t is a page table page: 512 64-bit entries, walked explicitly by the
/// vm package rather than via the teacher's recursive CPU mapping trick.
type Pmap_t [512]Pa_t

/// Unpin_i allows unpinning of physical pages.
type Unpin_i interface {
	Unpin(Pa_t)
}

/// Mmapinfo_t describes a mapping handed to a caller that must keep the
/// backing page pinned.
type Mmapinfo_t struct {
	Pg   *Pg_t
	Phys Pa_t
}

/// Page_i abstracts physical page allocation so higher layers (circbuf, vm)
/// don't reach into Physmem_t directly.
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Dmap(Pa_t) *Pg_t
	Refup(Pa_t)
	Refdown(Pa_t) bool
}

/// Pg2bytes converts a page of ints to a page of bytes.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

/// Bytepg2pg converts a byte page back to a Pg_t.
func Bytepg2pg(pg *Bytepg_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(pg))
}

func pg2pmap(pg *Pg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}
