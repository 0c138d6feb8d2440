package mem

import "testing"

func TestPhysInitAllFramesFree(t *testing.T) {
	phys := Phys_init(64, 0)
	free, _ := phys.Pgcount()
	if free != 64 {
		t.Fatalf("free = %d, want 64", free)
	}
}

func TestRefpgNewThenRefdownReturnsToFreeList(t *testing.T) {
	phys := Phys_init(4, 0)
	before, _ := phys.Pgcount()

	_, pa, ok := phys.Refpg_new()
	if !ok {
		t.Fatal("Refpg_new failed on a fresh pool")
	}
	mid, _ := phys.Pgcount()
	if mid != before-1 {
		t.Fatalf("free after alloc = %d, want %d", mid, before-1)
	}

	if freed := phys.Refdown(pa); !freed {
		t.Fatal("Refdown of a freshly allocated page should free it at refcnt 0")
	}
	after, _ := phys.Pgcount()
	if after != before {
		t.Fatalf("free after refdown = %d, want %d", after, before)
	}
}

func TestRefupKeepsPageAlive(t *testing.T) {
	phys := Phys_init(4, 0)
	_, pa, ok := phys.Refpg_new()
	if !ok {
		t.Fatal("Refpg_new failed")
	}
	phys.Refup(pa)
	if freed := phys.Refdown(pa); freed {
		t.Fatal("page with refcnt 2 should not free on first Refdown")
	}
	if freed := phys.Refdown(pa); !freed {
		t.Fatal("page with refcnt 1 should free on second Refdown")
	}
}

func TestRefpgNewExhaustion(t *testing.T) {
	phys := Phys_init(2, 0)
	for i := 0; i < 2; i++ {
		if _, _, ok := phys.Refpg_new(); !ok {
			t.Fatalf("unexpected allocation failure at frame %d", i)
		}
	}
	if _, _, ok := phys.Refpg_new(); ok {
		t.Fatal("expected allocation failure once the pool is exhausted")
	}
}

func TestDmapZeroFilled(t *testing.T) {
	phys := Phys_init(4, 0)
	_, pa, _ := phys.Refpg_new()
	pg := phys.Dmap(pa)
	for i, v := range pg {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0 (Refpg_new should zero)", i, v)
		}
	}
}

func TestDmaplenReadsBackWrittenBytes(t *testing.T) {
	phys := Phys_init(4, 0)
	_, pa, _ := phys.Refpg_new()
	bpg := Pg2bytes(phys.Dmap(pa))
	for i := range bpg {
		bpg[i] = byte(i)
	}
	out := phys.Dmaplen(pa, PGSIZE)
	if len(out) != PGSIZE {
		t.Fatalf("len = %d, want %d", len(out), PGSIZE)
	}
	if out[10] != 10 {
		t.Fatalf("out[10] = %d, want 10", out[10])
	}
}
