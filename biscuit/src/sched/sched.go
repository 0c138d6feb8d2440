package sched

import "defs"

// pickLocked removes and returns the head of the highest non-empty run
// queue, preferring UI over High over Normal over Background over Idle.
// Returns the idle thread if every real queue is empty.
func (s *Scheduler) pickLocked() *TCB {
	for p := defs.NumPrios - 1; p >= 0; p-- {
		q := s.runq[p]
		if len(q) == 0 {
			continue
		}
		t := q[0]
		s.runq[p] = q[1:]
		return t
	}
	return s.idle
}

// enqueueLocked places t at the back of its priority band's run queue and
// marks it Ready. A thread boosted by ageLocked is demoted back to the
// priority band its nice value derives, the next time it's descheduled,
// which is exactly when it's passed back through here (by Yield, once it
// stops running).
func (s *Scheduler) enqueueLocked(t *TCB) {
	if t.Boosted {
		t.Prio = t.BasePrio
		t.Boosted = false
	}
	t.State = defs.Ready
	t.waitTicks = 0
	s.runq[t.Prio] = append(s.runq[t.Prio], t)
}

// ageLocked implements rocket-boost aging (spec.md's AgingThreshold):
// every ready thread that has waited AgingThreshold ticks without running
// is promoted to PrioUI so starvation under a flood of high-priority work
// is bounded. The promotion is temporary: Boosted marks it so enqueueLocked
// demotes the thread back to BasePrio the next time it's descheduled.
func (s *Scheduler) ageLocked() {
	for p := defs.PrioIdle; p < defs.PrioUI; p++ {
		var stay []*TCB
		for _, t := range s.runq[p] {
			t.waitTicks++
			if t.waitTicks >= defs.AgingThreshold {
				t.Prio = defs.PrioUI
				t.Boosted = true
				t.waitTicks = 0
				s.runq[defs.PrioUI] = append(s.runq[defs.PrioUI], t)
			} else {
				stay = append(stay, t)
			}
		}
		s.runq[p] = stay
	}
}

// wakeSleepersLocked moves any Sleeping thread whose deadline has passed
// back onto its run queue.
func (s *Scheduler) wakeSleepersLocked() {
	var stay []*TCB
	for _, t := range s.sleepq {
		if s.ticks >= t.sleepUntil {
			s.enqueueLocked(t)
		} else {
			stay = append(stay, t)
		}
	}
	s.sleepq = stay
}

/// Tick advances the scheduler's clock by one tick, ages waiting threads,
/// wakes any sleepers whose deadline has passed, and reports whether the
/// currently running thread's slice has expired (the caller -- the trap
/// return path -- should call Yield when this is true).
func (s *Scheduler) Tick() bool {
	s.Lock()
	defer s.Unlock()
	s.ticks++
	s.current.Accnt.Systadd(1)
	s.ageLocked()
	s.wakeSleepersLocked()
	s.current.sliceLeft--
	return s.current.sliceLeft <= 0 && s.current != s.idle
}

/// Yield voluntarily (or on slice expiry) gives up the CPU, returning the
/// TCB that should now run. The caller is responsible for the actual
/// context switch; this package only tracks scheduling state.
func (s *Scheduler) Yield() *TCB {
	s.Lock()
	defer s.Unlock()
	prev := s.current
	if prev != s.idle && prev.State == defs.Running {
		s.enqueueLocked(prev)
	}
	next := s.pickLocked()
	next.State = defs.Running
	next.sliceLeft = next.Prio.TimeSlice()
	s.current = next
	return next
}

/// Block deschedules the thread tid, removing it from the run queue and
/// marking it Blocked. If tid is the currently running thread, Block then
/// calls Yield to give up the CPU.
func (s *Scheduler) Block(tid defs.Tid_t) {
	s.Lock()
	t, ok := s.threads[tid]
	s.Unlock()
	if !ok {
		return
	}
	t.checkMagic()
	s.Lock()
	t.State = defs.Blocked
	q := s.runq[t.Prio]
	for i, r := range q {
		if r == t {
			s.runq[t.Prio] = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	s.Unlock()
	if t == s.current {
		s.Yield()
	}
}

/// Wake moves a Blocked or Sleeping thread back onto its run queue.
func (s *Scheduler) Wake(tid defs.Tid_t) {
	s.Lock()
	defer s.Unlock()
	t, ok := s.threads[tid]
	if !ok {
		return
	}
	if t.State == defs.Blocked || t.State == defs.Sleeping {
		s.enqueueLocked(t)
	}
}

/// Sleep puts the calling thread to sleep for the given number of ticks.
func (s *Scheduler) Sleep(tid defs.Tid_t, ticks uint64) {
	s.Lock()
	t, ok := s.threads[tid]
	if !ok {
		s.Unlock()
		return
	}
	t.State = defs.Sleeping
	t.sleepUntil = s.ticks + ticks
	s.sleepq = append(s.sleepq, t)
	s.Unlock()
	if t == s.current {
		s.Yield()
	}
}

/// Exit marks tid as a Zombie and wakes any threads blocked in Join on it.
/// The idle thread may never exit.
func (s *Scheduler) Exit(tid defs.Tid_t) defs.Err_t {
	s.Lock()
	t, ok := s.threads[tid]
	if !ok {
		s.Unlock()
		return -defs.EBADTHREAD
	}
	if t == s.idle {
		s.Unlock()
		return -defs.EIDLEEXIT
	}
	t.State = defs.Zombie
	joiners := t.joinWaiters
	t.joinWaiters = nil
	s.Unlock()
	for _, j := range joiners {
		s.Wake(j)
	}
	if t == s.current {
		s.Yield()
	}
	return 0
}

/// Join blocks the calling thread until tid becomes a Zombie, then reaps
/// its TCB.
func (s *Scheduler) Join(waiter, tid defs.Tid_t) defs.Err_t {
	for {
		s.Lock()
		t, ok := s.threads[tid]
		if !ok {
			s.Unlock()
			return -defs.EBADTHREAD
		}
		if t.State == defs.Zombie {
			delete(s.threads, tid)
			s.Unlock()
			return 0
		}
		t.joinWaiters = append(t.joinWaiters, waiter)
		s.Unlock()
		s.Block(waiter)
	}
}

/// Reap removes a Zombie thread's TCB without blocking, for a parent that
/// already knows the child has exited.
func (s *Scheduler) Reap(tid defs.Tid_t) defs.Err_t {
	s.Lock()
	defer s.Unlock()
	t, ok := s.threads[tid]
	if !ok {
		return -defs.EBADTHREAD
	}
	if t.State != defs.Zombie {
		return -defs.EINVAL
	}
	delete(s.threads, tid)
	return 0
}
