package limits

import "testing"

func TestMkSysLimitDefaults(t *testing.T) {
	l := MkSysLimit()
	if l.Socks != 1e5 {
		t.Fatalf("Socks = %d, want 1e5", l.Socks)
	}
	if l.Pipes != 1e4 {
		t.Fatalf("Pipes = %d, want 1e4", l.Pipes)
	}
}

func TestTakenSucceedsWithinLimit(t *testing.T) {
	s := Sysatomic_t(5)
	if !s.Taken(3) {
		t.Fatal("Taken(3) from a limit of 5 should succeed")
	}
	if int64(s) != 2 {
		t.Fatalf("remaining = %d, want 2", int64(s))
	}
}

func TestTakenFailsAndRestoresOverLimit(t *testing.T) {
	s := Sysatomic_t(2)
	if s.Taken(5) {
		t.Fatal("Taken(5) from a limit of 2 should fail")
	}
	if int64(s) != 2 {
		t.Fatalf("limit after failed Taken = %d, want unchanged 2", int64(s))
	}
}

func TestGivenIncreasesLimit(t *testing.T) {
	s := Sysatomic_t(0)
	s.Given(4)
	if int64(s) != 4 {
		t.Fatalf("limit after Given(4) = %d, want 4", int64(s))
	}
}

func TestTakeAndGiveAreUnitTakenGiven(t *testing.T) {
	s := Sysatomic_t(1)
	if !s.Take() {
		t.Fatal("Take on a limit of 1 should succeed")
	}
	if int64(s) != 0 {
		t.Fatalf("limit after Take = %d, want 0", int64(s))
	}
	s.Give()
	if int64(s) != 1 {
		t.Fatalf("limit after Give = %d, want 1", int64(s))
	}
}
