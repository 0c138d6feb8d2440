package syscall

import (
	"defs"
	"fd"
	"fdops"
	"inet"
	"process"
	"vm"
)

func sysSocket(p *process.PCB) int {
	s, serr := inet.SocketCreate()
	if serr != 0 {
		return int(serr)
	}
	fdv := &fd.Fd_t{Fops: &inet.SockFd{S: s}, Perms: fd.FD_READ | fd.FD_WRITE}
	slot, err := p.Fds.Open(fdv)
	if err != 0 {
		return int(err)
	}
	return slot
}

// sysSockCall looks up fdn and, if it is a socket, applies fn to its
// Fdops_i; ENOTSUP bubbles straight up for any descriptor that doesn't
// speak the socket protocol, matching fdops.Fdops_i's contract for
// non-socket descriptors.
func sysSockCall(p *process.PCB, fdn int, fn func(fdops.Fdops_i) int) int {
	fdv, err := p.Fds.Get(fdn)
	if err != 0 {
		return int(err)
	}
	return fn(fdv.Fops)
}

/// sysAccept blocks the calling thread (via inet.Socket.Accept, itself
/// blocking through ksync.Cond_t/sched.Scheduler) until a connection is
/// ready on the listening socket at fdn, installs it as a new fd, and
/// copies the remote address into the user buffer at addrUva if one was
/// supplied.
func sysAccept(p *process.PCB, fdn int, addrUva uintptr, addrLen int) int {
	fdv, err := p.Fds.Get(fdn)
	if err != 0 {
		return int(err)
	}
	var addrBuf *vm.Userbuf_t
	var uio fdops.Userio_i
	if addrUva != 0 && addrLen > 0 {
		addrBuf = &vm.Userbuf_t{}
		addrBuf.Ub_init(p.AS, addrUva, addrLen)
		uio = addrBuf
	}
	conn, _, aerr := fdv.Fops.Accept(uio)
	if aerr != 0 {
		return int(aerr)
	}
	nfd := &fd.Fd_t{Fops: conn, Perms: fd.FD_READ | fd.FD_WRITE}
	slot, ferr := p.Fds.Open(nfd)
	if ferr != 0 {
		return int(ferr)
	}
	return slot
}
