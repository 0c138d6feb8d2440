package process

import (
	"defs"
	"sched"
)

/// Join blocks the calling thread until p is Zombie or Terminated, then
/// returns its exit status.
func Join(s *sched.Scheduler, waiter defs.Tid_t, p *PCB) (int, defs.Err_t) {
	for p.State != defs.PZombie && p.State != defs.PTerminated {
		if err := s.Join(waiter, p.MainTid); err != 0 {
			return 0, err
		}
	}
	return p.ExitStatus, 0
}

/// Exit marks p a zombie (PZombie) with the given status and exits every one of
/// its threads through sched's single point of exit.
func Exit(s *sched.Scheduler, p *PCB, status int) {
	p.State = defs.PZombie
	p.ExitStatus = status
	for _, tid := range p.Threads {
		s.Exit(tid)
	}
	p.Fds.CloseAll()
	p.AS.FreeDirectory()
}

/// Kill marks p terminated and exits all of its threads, as if it had
/// called exit() itself with status -1.
func Kill(s *sched.Scheduler, p *PCB) {
	Exit(s, p, -1)
}

/// KillTree kills p and recursively every descendant process.
func KillTree(s *sched.Scheduler, p *PCB) {
	for _, c := range p.Children {
		KillTree(s, c)
	}
	Kill(s, p)
}
