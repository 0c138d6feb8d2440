package sched

import (
	"testing"

	"defs"
)

func TestNewSchedulerStartsOnIdle(t *testing.T) {
	s := NewScheduler()
	if s.current != s.idle {
		t.Fatal("a fresh scheduler should be running its idle thread")
	}
	if s.idle.State != defs.Running {
		t.Fatalf("idle state = %v, want Running", s.idle.State)
	}
}

func TestNewThreadPicksPriorityBandFromNice(t *testing.T) {
	s := NewScheduler()
	t1 := s.NewThread(1, -20)
	if t1.Prio != defs.PrioUI {
		t.Fatalf("nice -20 = prio %v, want PrioUI", t1.Prio)
	}
	t2 := s.NewThread(2, 20)
	if t2.Prio != defs.PrioIdle {
		t.Fatalf("nice 20 = prio %v, want PrioIdle", t2.Prio)
	}
}

func TestYieldPicksHighestNonEmptyBand(t *testing.T) {
	s := NewScheduler()
	lo := s.NewThread(1, 10)  // PrioBackground
	hi := s.NewThread(2, -10) // PrioUI
	_ = lo

	next := s.Yield()
	if next.Tid != hi.Tid {
		t.Fatalf("Yield picked tid %d, want the PrioUI thread %d", next.Tid, hi.Tid)
	}
}

func TestYieldRequeuesPreviousRunningThread(t *testing.T) {
	s := NewScheduler()
	a := s.NewThread(1, 0)
	b := s.NewThread(2, 0)

	first := s.Yield()
	if first.Tid != a.Tid {
		t.Fatalf("first Yield = tid %d, want %d", first.Tid, a.Tid)
	}
	second := s.Yield()
	if second.Tid != b.Tid {
		t.Fatalf("second Yield = tid %d, want %d", second.Tid, b.Tid)
	}
	third := s.Yield()
	if third.Tid != a.Tid {
		t.Fatalf("third Yield = tid %d, want %d (previous running thread requeued)", third.Tid, a.Tid)
	}
}

func TestTickReportsSliceExpiry(t *testing.T) {
	s := NewScheduler()
	th := s.NewThread(1, 0)
	s.Yield() // schedule th as current

	slice := th.Prio.TimeSlice()
	for i := 0; i < slice-1; i++ {
		if expired := s.Tick(); expired {
			t.Fatalf("Tick %d reported expiry early", i)
		}
	}
	if expired := s.Tick(); !expired {
		t.Fatal("Tick should report slice expiry once sliceLeft reaches 0")
	}
}

func TestAgingPromotesStarvedThread(t *testing.T) {
	s := NewScheduler()
	low := s.NewThread(1, 10) // PrioBackground
	s.NewThread(2, -20)       // keep a PrioUI thread always runnable so low never gets picked
	s.Yield()                 // current = the PrioUI thread

	for i := 0; i < defs.AgingThreshold; i++ {
		s.Tick()
	}

	s.Lock()
	prio := low.Prio
	s.Unlock()
	if prio != defs.PrioUI {
		t.Fatalf("starved thread prio = %v, want promoted to PrioUI", prio)
	}
}

func TestBoostedThreadDemotesToBaseBandAfterRunning(t *testing.T) {
	s := NewScheduler()
	low := s.NewThread(1, 10) // PrioBackground
	s.NewThread(2, -20)       // keep a PrioUI thread always runnable so low never gets picked
	s.Yield()                 // current = the PrioUI thread

	for i := 0; i < defs.AgingThreshold; i++ {
		s.Tick()
	}

	s.Lock()
	boosted, prio, base := low.Boosted, low.Prio, low.BasePrio
	s.Unlock()
	if !boosted {
		t.Fatal("starved thread should be marked Boosted once aged into PrioUI")
	}
	if prio != defs.PrioUI {
		t.Fatalf("starved thread prio = %v, want PrioUI", prio)
	}
	if base != defs.PrioBackground {
		t.Fatalf("starved thread BasePrio = %v, want PrioBackground (unaffected by boosting)", base)
	}

	// cycle the other PrioUI thread out so low is actually picked to run
	next := s.Yield()
	if next.Tid != low.Tid {
		t.Fatalf("Yield picked tid %d, want the boosted thread %d", next.Tid, low.Tid)
	}

	// low has now run; the next time it's descheduled it must demote
	s.Yield()
	s.Lock()
	defer s.Unlock()
	if low.Boosted {
		t.Fatal("thread should no longer be Boosted once it's been descheduled after running")
	}
	if low.Prio != defs.PrioBackground {
		t.Fatalf("prio after running = %v, want demoted back to PrioBackground", low.Prio)
	}
}

func TestBlockThenWakeReturnsThreadToRunqueue(t *testing.T) {
	s := NewScheduler()
	th := s.NewThread(1, 0)
	s.Block(th.Tid)
	if th.State != defs.Blocked {
		t.Fatalf("state after Block = %v, want Blocked", th.State)
	}
	s.Wake(th.Tid)
	if th.State != defs.Ready {
		t.Fatalf("state after Wake = %v, want Ready", th.State)
	}
}

func TestExitMarksZombieAndWakesJoiner(t *testing.T) {
	s := NewScheduler()
	child := s.NewThread(1, 0)
	waiter := s.NewThread(2, 0)
	s.Block(waiter.Tid)
	child.joinWaiters = append(child.joinWaiters, waiter.Tid)

	if err := s.Exit(child.Tid); err != 0 {
		t.Fatalf("Exit failed: %v", err)
	}
	if child.State != defs.Zombie {
		t.Fatalf("state after Exit = %v, want Zombie", child.State)
	}
	if waiter.State != defs.Ready {
		t.Fatalf("joiner state after Exit = %v, want Ready", waiter.State)
	}
}

func TestIdleThreadCannotExit(t *testing.T) {
	s := NewScheduler()
	if err := s.Exit(s.idle.Tid); err != -defs.EIDLEEXIT {
		t.Fatalf("Exit(idle) = %v, want EIDLEEXIT", err)
	}
}

func TestReapRequiresZombieState(t *testing.T) {
	s := NewScheduler()
	th := s.NewThread(1, 0)
	if err := s.Reap(th.Tid); err != -defs.EINVAL {
		t.Fatalf("Reap of a Ready thread = %v, want EINVAL", err)
	}
	s.Exit(th.Tid)
	if err := s.Reap(th.Tid); err != 0 {
		t.Fatalf("Reap of a Zombie thread failed: %v", err)
	}
	if _, err := s.Lookup(th.Tid); err != -defs.EBADTHREAD {
		t.Fatalf("Lookup after Reap = %v, want EBADTHREAD", err)
	}
}

func TestCheckMagicPanicsOnCorruptTCB(t *testing.T) {
	th := newTCB(1, 1, defs.PrioNormal, 0)
	th.Magic = 0
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on corrupt TCB magic")
		}
	}()
	th.checkMagic()
}
