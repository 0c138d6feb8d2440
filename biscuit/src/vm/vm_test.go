package vm

import (
	"testing"

	"defs"
	"mem"
)

func freshDirectory(t *testing.T) *AS {
	t.Helper()
	mem.Phys_init(64, 0)
	as, err := CreateDirectory()
	if err != 0 {
		t.Fatalf("CreateDirectory failed: %v", err)
	}
	return as
}

func TestMapPageThenIsMapped(t *testing.T) {
	as := freshDirectory(t)
	_, pa, ok := mem.Physmem.Refpg_new()
	if !ok {
		t.Fatal("Refpg_new failed")
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	if err := as.MapPage(0x1000, pa, PTE_U|PTE_W); err != 0 {
		t.Fatalf("MapPage failed: %v", err)
	}
	if !as.IsMapped(0x1000) {
		t.Fatal("IsMapped should report true right after MapPage")
	}
	if as.IsMapped(0x2000) {
		t.Fatal("IsMapped should report false for an unrelated address")
	}
}

func TestUnmapPageRemovesMapping(t *testing.T) {
	as := freshDirectory(t)
	_, pa, _ := mem.Physmem.Refpg_new()
	as.Lock_pmap()
	as.MapPage(0x1000, pa, PTE_U|PTE_W)
	removed := as.UnmapPage(0x1000)
	mapped := as.IsMapped(0x1000)
	as.Unlock_pmap()
	if !removed {
		t.Fatal("UnmapPage should report true for a present mapping")
	}
	if mapped {
		t.Fatal("address should no longer be mapped after UnmapPage")
	}
}

func TestUnmapPageOnAbsentMappingReportsFalse(t *testing.T) {
	as := freshDirectory(t)
	as.Lock_pmap()
	removed := as.UnmapPage(0x9000)
	as.Unlock_pmap()
	if removed {
		t.Fatal("UnmapPage of an unmapped address should report false")
	}
}

func TestMapPageAcrossMultipleRadixLevels(t *testing.T) {
	as := freshDirectory(t)
	// Addresses this far apart force walk() to allocate distinct L3/L2
	// page-table pages for each, exercising the 4-level radix walk.
	vas := []uintptr{0x1000, 1 << 30, 2 << 39}
	for _, va := range vas {
		_, pa, ok := mem.Physmem.Refpg_new()
		if !ok {
			t.Fatalf("Refpg_new failed for va %#x", va)
		}
		as.Lock_pmap()
		err := as.MapPage(va, pa, PTE_U|PTE_W)
		mapped := as.IsMapped(va)
		as.Unlock_pmap()
		if err != 0 {
			t.Fatalf("MapPage(%#x) failed: %v", va, err)
		}
		if !mapped {
			t.Fatalf("va %#x should be mapped", va)
		}
	}
}

func TestCopyToThenCopyFromRoundtrips(t *testing.T) {
	as := freshDirectory(t)
	_, pa, _ := mem.Physmem.Refpg_new()
	as.Lock_pmap()
	as.MapPage(0x3000, pa, PTE_U|PTE_W)
	as.Unlock_pmap()

	src := []byte("hello, address space")
	if err := as.CopyTo(0x3000, src); err != 0 {
		t.Fatalf("CopyTo failed: %v", err)
	}
	dst := make([]byte, len(src))
	if err := as.CopyFrom(dst, 0x3000); err != 0 {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if string(dst) != string(src) {
		t.Fatalf("CopyFrom got %q, want %q", dst, src)
	}
}

func TestCopyToCrossingPageBoundary(t *testing.T) {
	as := freshDirectory(t)
	base := uintptr(0x4000)
	for va := base; va < base+2*uintptr(mem.PGSIZE); va += uintptr(mem.PGSIZE) {
		_, pa, _ := mem.Physmem.Refpg_new()
		as.Lock_pmap()
		as.MapPage(va, pa, PTE_U|PTE_W)
		as.Unlock_pmap()
	}
	off := base + uintptr(mem.PGSIZE) - 4
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := as.CopyTo(off, src); err != 0 {
		t.Fatalf("CopyTo across boundary failed: %v", err)
	}
	dst := make([]byte, len(src))
	if err := as.CopyFrom(dst, off); err != 0 {
		t.Fatalf("CopyFrom across boundary failed: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d = %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestCopyToUnmappedAddressReturnsEFAULT(t *testing.T) {
	as := freshDirectory(t)
	if err := as.CopyTo(0x5000, []byte("x")); err != -defs.EFAULT {
		t.Fatalf("CopyTo to an unmapped address = %v, want EFAULT", err)
	}
}

func TestFreeDirectoryDropsPageRefcounts(t *testing.T) {
	as := freshDirectory(t)
	_, pa, _ := mem.Physmem.Refpg_new()
	// freed page-table pages go to the pmap recycle list, so count both
	before, bp := mem.Physmem.Pgcount()
	as.Lock_pmap()
	as.MapPage(0x6000, pa, PTE_U|PTE_W)
	as.Unlock_pmap()
	as.FreeDirectory()
	after, ap := mem.Physmem.Pgcount()
	if after+ap < before+bp {
		t.Fatalf("free+recycled count after FreeDirectory = %d, want >= %d", after+ap, before+bp)
	}
}

func TestFakeubufReadWrite(t *testing.T) {
	var fb Fakeubuf_t
	fb.Fake_init([]byte("abc"))
	if fb.Totalsz() != 3 {
		t.Fatalf("Totalsz = %d, want 3", fb.Totalsz())
	}
	dst := make([]byte, 3)
	n, err := fb.Uioread(dst)
	if err != 0 || n != 3 || string(dst) != "abc" {
		t.Fatalf("Uioread = (%d, %v, %q), want (3, 0, abc)", n, err, dst)
	}
}

func TestUserbufCrossesPages(t *testing.T) {
	as := freshDirectory(t)
	base := uintptr(0x7000)
	for va := base; va < base+2*uintptr(mem.PGSIZE); va += uintptr(mem.PGSIZE) {
		_, pa, _ := mem.Physmem.Refpg_new()
		as.Lock_pmap()
		as.MapPage(va, pa, PTE_U|PTE_W)
		as.Unlock_pmap()
	}
	var ub Userbuf_t
	ub.Ub_init(as, base+uintptr(mem.PGSIZE)-2, 6)
	payload := []byte{10, 20, 30, 40, 50, 60}
	n, err := ub.Uiowrite(payload)
	if err != 0 || n != 6 {
		t.Fatalf("Uiowrite = (%d, %v), want (6, 0)", n, err)
	}
	if ub.Remain() != 0 {
		t.Fatalf("Remain after full write = %d, want 0", ub.Remain())
	}
}
