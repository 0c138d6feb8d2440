// Package sched implements the preemptive priority scheduler: five FIFO run
// queues banded by priority, rocket-boost aging for threads that wait too
// long, and a sleep queue for timed waits. There are no real hardware
// interrupts or multiple CPUs here -- a single goroutine drives the whole
// kernel, and "the current thread" is a plain field on Scheduler rather
// than thread-local storage threaded through a patched runtime (see
// tinfo.Tnote_t/runtime.Gptr in the teacher for the mechanism this
// replaces).
package sched

import (
	"sync"

	"accnt"
	"caller"
	"defs"
)

/// TCB is a thread control block: the scheduler's unit of execution.
/// Mirrors the fields the teacher kept in tinfo.Tnote_t (Alive/Killed/
/// Isdoomed) plus the bookkeeping a real priority+aging scheduler needs.
type TCB struct {
	Magic uint32
	Tid   defs.Tid_t
	Pid   defs.Pid_t

	Prio  defs.Prio_t
	State defs.Tstate_t

	// Nice and BasePrio record the thread's unboosted scheduling class;
	// Prio is the band it actually runs at right now. BasePrio is
	// PrioFromNice(Nice), fixed at creation. Boosted is set while Prio
	// has been temporarily raised to PrioUI by aging and is cleared the
	// next time the thread is descheduled, at which point Prio is reset
	// to BasePrio (see enqueueLocked).
	Nice     int
	BasePrio defs.Prio_t
	Boosted  bool

	// sliceLeft counts down the ticks remaining in the current run slice;
	// waitTicks counts ticks spent ready-but-unscheduled, driving aging.
	sliceLeft int
	waitTicks int

	// sleepUntil is the tick count at which a Sleeping thread wakes.
	sleepUntil uint64

	Killed   bool
	Isdoomed bool

	Accnt *accnt.Accnt_t

	// joinWaiters are threads parked in Join waiting for this one to
	// reach Zombie.
	joinWaiters []defs.Tid_t
}

func newTCB(tid defs.Tid_t, pid defs.Pid_t, prio defs.Prio_t, nice int) *TCB {
	return &TCB{
		Magic:    defs.TCBMagic,
		Tid:      tid,
		Pid:      pid,
		Prio:     prio,
		BasePrio: prio,
		Nice:     nice,
		State:    defs.Ready,
		Accnt:    &accnt.Accnt_t{},
	}
}

// checkMagic panics with a call stack dump if t's sentinel has been
// clobbered -- grounded on the teacher's own use of a magic field to
// catch a stale or reused TCB pointer before it's trusted.
func (t *TCB) checkMagic() {
	if t.Magic != defs.TCBMagic {
		caller.Callerdump(1)
		panic("corrupt TCB")
	}
}

/// Scheduler holds every live thread and the run/sleep queues driving them.
/// There is exactly one Scheduler per kernel instance.
type Scheduler struct {
	sync.Mutex

	threads map[defs.Tid_t]*TCB
	runq    [defs.NumPrios][]*TCB
	sleepq  []*TCB

	current *TCB
	idle    *TCB

	ticks   uint64
	nextTid defs.Tid_t
}

/// NewScheduler creates an empty scheduler and its idle thread, which runs
/// in PrioIdle and is never itself allowed to Exit.
func NewScheduler() *Scheduler {
	s := &Scheduler{threads: make(map[defs.Tid_t]*TCB)}
	s.idle = s.newThreadLocked(0, defs.PrioIdle, 20)
	s.current = s.idle
	s.idle.State = defs.Running
	return s
}

func (s *Scheduler) newThreadLocked(pid defs.Pid_t, prio defs.Prio_t, nice int) *TCB {
	tid := s.nextTid
	s.nextTid++
	t := newTCB(tid, pid, prio, nice)
	s.threads[tid] = t
	return t
}

/// NewThread creates a new Ready thread for process pid at the priority
/// banding nice maps to, and enqueues it on its run queue.
func (s *Scheduler) NewThread(pid defs.Pid_t, nice int) *TCB {
	s.Lock()
	defer s.Unlock()
	prio := defs.PrioFromNice(nice)
	t := s.newThreadLocked(pid, prio, nice)
	s.runq[prio] = append(s.runq[prio], t)
	return t
}

/// Lookup returns the TCB for tid, if it still exists.
func (s *Scheduler) Lookup(tid defs.Tid_t) (*TCB, defs.Err_t) {
	s.Lock()
	defer s.Unlock()
	t, ok := s.threads[tid]
	if !ok {
		return nil, -defs.EBADTHREAD
	}
	return t, 0
}

/// Current returns the thread ID of the thread presently scheduled.
func (s *Scheduler) Current() defs.Tid_t {
	s.Lock()
	defer s.Unlock()
	return s.current.Tid
}
