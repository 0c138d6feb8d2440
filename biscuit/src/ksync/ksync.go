// Package ksync provides the blocking synchronization primitives the
// scheduler's run queues are built on: a condition variable, a semaphore,
// and a thin spinlock wrapper matching the teacher's locking idiom. None of
// these touch hardware interrupts -- blocking a thread means handing
// control back to sched.Scheduler, which is registered here through the
// Scheduler_i interface so ksync doesn't import sched directly (sched in
// turn imports ksync for its sleep queues).
package ksync

import (
	"sync"

	"defs"
)

/// Scheduler_i is the subset of sched.Scheduler that blocking primitives
/// need: parking the calling thread off the run queue and waking one back
/// onto it.
type Scheduler_i interface {
	Block(tid defs.Tid_t)
	Wake(tid defs.Tid_t)
	Current() defs.Tid_t
}

var sched Scheduler_i

/// SetScheduler installs the scheduler instance ksync blocks threads
/// against. Called once during kernel init.
func SetScheduler(s Scheduler_i) {
	sched = s
}

/// Spinlock_t is a mutual exclusion lock. Named after the teacher's
/// spinlock even though nothing here spins -- there is only ever one
/// simulated CPU, so contention is impossible; the wrapper exists so
/// callers written against a spinlock API port over unchanged.
type Spinlock_t struct {
	sync.Mutex
}

/// Waitq_t is a FIFO queue of threads parked waiting for some condition.
/// Cond_t and Semaphore_t are both built on it.
type Waitq_t struct {
	Spinlock_t
	waiters []defs.Tid_t
}

func (wq *Waitq_t) addwaiter(tid defs.Tid_t) {
	wq.Lock()
	wq.waiters = append(wq.waiters, tid)
	wq.Unlock()
}

/// Wake1 wakes the longest-waiting thread, if any, and reports whether one
/// was woken.
func (wq *Waitq_t) Wake1() bool {
	wq.Lock()
	if len(wq.waiters) == 0 {
		wq.Unlock()
		return false
	}
	tid := wq.waiters[0]
	wq.waiters = wq.waiters[1:]
	wq.Unlock()
	sched.Wake(tid)
	return true
}

/// WakeAll wakes every waiting thread.
func (wq *Waitq_t) WakeAll() {
	wq.Lock()
	ws := wq.waiters
	wq.waiters = nil
	wq.Unlock()
	for _, tid := range ws {
		sched.Wake(tid)
	}
}

/// Cond_t is a condition variable. Wait must be called with some external
/// lock describing the condition held by the caller; that lock is
/// released for the duration of the block the way sync.Cond.Wait works,
/// except here "blocking" means descheduling the thread rather than
/// parking a goroutine.
type Cond_t struct {
	Waitq_t
	L sync.Locker
}

/// MkCond creates a condition variable guarded by l.
func MkCond(l sync.Locker) *Cond_t {
	return &Cond_t{L: l}
}

/// Wait blocks the calling thread until Signal or Broadcast is called,
/// re-acquiring L before returning.
func (c *Cond_t) Wait() {
	me := sched.Current()
	c.addwaiter(me)
	c.L.Unlock()
	sched.Block(me)
	c.L.Lock()
}

/// Signal wakes one waiter, if any.
func (c *Cond_t) Signal() {
	c.Wake1()
}

/// Broadcast wakes every waiter.
func (c *Cond_t) Broadcast() {
	c.WakeAll()
}

/// Semaphore_t is a counting semaphore.
type Semaphore_t struct {
	Waitq_t
	count int
}

/// MkSemaphore creates a semaphore with the given initial count.
func MkSemaphore(n int) *Semaphore_t {
	return &Semaphore_t{count: n}
}

/// Down blocks until the semaphore's count is positive, then decrements it.
func (s *Semaphore_t) Down() {
	for {
		s.Lock()
		if s.count > 0 {
			s.count--
			s.Unlock()
			return
		}
		s.Unlock()
		me := sched.Current()
		s.addwaiter(me)
		sched.Block(me)
	}
}

/// Up increments the semaphore's count and wakes one waiter if any are
/// parked.
func (s *Semaphore_t) Up() {
	s.Lock()
	s.count++
	s.Unlock()
	s.Wake1()
}
