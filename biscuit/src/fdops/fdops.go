// Package fdops defines the interfaces that bind a file descriptor slot to
// its backing implementation -- a VFS file, the console device, or a
// socket -- without the fd table or the syscall dispatcher needing to know
// which. Was an empty placeholder in the teacher's module graph even though
// fd.go and circbuf.go both import it; populated here since both of those
// kept files need it to compile.
package fdops

import "defs"

/// Fdops_i is implemented by every kind of open file descriptor: VFS files
/// (vfs.File), the console device (compat.Console), and inet sockets
/// (inet.SockFd). Read/Write operate through
/// a Userio_i so callers can pass either real user memory or a kernel
/// buffer dressed up to look like one.
type Fdops_i interface {
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	Close() defs.Err_t
	Reopen() defs.Err_t

	// Accept blocks the calling thread until a connection arrives on a
	// listening socket fd, returning a new Fdops_i for the accepted
	// connection and the number of remote-address bytes written into
	// fromer (inet.SockFd writes a 2-byte port followed by a 4-byte IPv4
	// address). Non-socket descriptors return ENOTSUP.
	Accept(fromer Userio_i) (Fdops_i, int, defs.Err_t)

	// Listen, Bind and Shutdown let socket fds be driven through the
	// usual accept(2)/listen(2)/bind(2) lifecycle; non-socket
	// descriptors return ENOTSUP.
	Listen(backlog int) defs.Err_t
	Bind(saddr []uint8) defs.Err_t
	Shutdown(read, write bool) defs.Err_t

	// Fullpath returns the canonical path backing this descriptor, or
	// ENOTSUP for descriptors with no path (the console, sockets).
	Fullpath() (string, defs.Err_t)
}

/// Userio_i abstracts a source or sink of bytes that may live in a user
/// address space, a kernel buffer standing in for one (vm.Fakeubuf_t), or
/// an iovec array (vm.Useriovec_t). circbuf.Circbuf_t reads and writes
/// through this interface so it never has to know which kind of caller it
/// is serving.
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}
