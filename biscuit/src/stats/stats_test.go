package stats

import "testing"

func TestRdtscIsMonotonicallyIncreasing(t *testing.T) {
	a := Rdtsc()
	b := Rdtsc()
	if b < a {
		t.Fatalf("Rdtsc went backwards: %d then %d", a, b)
	}
}

func TestCounterIncAccumulates(t *testing.T) {
	var c Counter_t
	c.Inc()
	c.Inc()
	c.Inc()
	if c != 3 {
		t.Fatalf("Counter_t = %d, want 3", c)
	}
}

func TestCyclesAddAccumulatesElapsed(t *testing.T) {
	var cy Cycles_t
	start := Rdtsc()
	cy.Add(start)
	if cy < 0 {
		t.Fatalf("Cycles_t = %d, want non-negative", cy)
	}
}

type sampleStats struct {
	Reads  Counter_t
	Writes Counter_t
	Busy   Cycles_t
	Name   string
}

func TestStats2StringIncludesOnlyCounterAndCyclesFields(t *testing.T) {
	s := sampleStats{Reads: 5, Writes: 2, Busy: 100, Name: "ignored"}
	out := Stats2String(s)
	if !contains(out, "Reads") || !contains(out, "5") {
		t.Fatalf("Stats2String(%v) = %q, want it to mention Reads: 5", s, out)
	}
	if !contains(out, "Writes") || !contains(out, "2") {
		t.Fatalf("Stats2String(%v) = %q, want it to mention Writes: 2", s, out)
	}
	if !contains(out, "Busy") || !contains(out, "100") {
		t.Fatalf("Stats2String(%v) = %q, want it to mention Busy: 100", s, out)
	}
	if contains(out, "ignored") {
		t.Fatalf("Stats2String(%v) = %q, should not mention non-counter fields", s, out)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
