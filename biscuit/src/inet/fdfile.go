package inet

import (
	"defs"
	"fdops"
)

/// SockFd adapts a Socket to fdops.Fdops_i so it can occupy a slot in a
/// process's fd.Table alongside VFS files and the console, dispatched the
/// same way by the syscall layer's fd-tag switch.
type SockFd struct {
	S *Socket
}

var _ fdops.Fdops_i = (*SockFd)(nil)

func (f *SockFd) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]byte, dst.Remain())
	n, err := f.S.Recv(buf)
	if err != 0 {
		return 0, err
	}
	wrote, err := dst.Uiowrite(buf[:n])
	if err != 0 {
		return 0, err
	}
	return wrote, 0
}

func (f *SockFd) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	return f.S.Send(buf[:n])
}

func (f *SockFd) Close() defs.Err_t {
	return f.S.Close()
}

func (f *SockFd) Reopen() defs.Err_t {
	return 0
}

/// Accept blocks until a connection is pending on a listening socket,
/// wraps it in a new SockFd, and packs the remote address the same way
/// the teacher's sockaddr encoding does: 2 bytes port, 4 bytes IPv4,
/// written into fromer if non-nil.
func (f *SockFd) Accept(fromer fdops.Userio_i) (fdops.Fdops_i, int, defs.Err_t) {
	conn, err := f.S.Accept()
	if err != 0 {
		return nil, 0, err
	}
	n := 0
	if fromer != nil {
		addr := encodeAddr(conn.remote)
		n, err = fromer.Uiowrite(addr)
		if err != 0 {
			return nil, 0, err
		}
	}
	return &SockFd{S: conn}, n, 0
}

func (f *SockFd) Listen(backlog int) defs.Err_t {
	return f.S.Listen(backlog)
}

func (f *SockFd) Bind(saddr []uint8) defs.Err_t {
	return f.S.Bind(saddr)
}

func (f *SockFd) Shutdown(read, write bool) defs.Err_t {
	return f.S.Shutdown(read, write)
}

func (f *SockFd) Fullpath() (string, defs.Err_t) {
	return "", -defs.ENOTSUP
}

func encodeAddr(a Addr) []byte {
	b := make([]byte, 6)
	b[0] = byte(a.Port >> 8)
	b[1] = byte(a.Port)
	copy(b[2:], a.IP[:])
	return b
}
