// Package inet implements the kernel's TCP collaborator: the socket
// reference implementation the syscall package's socket/bind/listen/
// accept/send/recv operations delegate to. Grounded on circbuf.Circbuf_t
// for the send/receive rings and hashtable.Hashtable_t for the table of
// listening sockets by port, the way the teacher's own networking
// code (bnet/unet) leans on circbuf and a lock-striped table rather than
// protecting one giant map with one lock. A real TCP state machine
// (retransmission, congestion control, the wire format itself) is a
// non-goal; this models only the accept/connect/send/recv contract
// spec.md's C7 module needs, with State transitions following the subset
// of RFC 793's diagram the spec requires.
package inet

import (
	"sync"

	"circbuf"
	"defs"
	"ksync"
	"limits"
	"mem"
	"vm"
)

/// State is a socket's position in the (truncated) TCP state machine.
type State int

const (
	Closed State = iota
	Listen
	SynRcvd
	Established
	CloseWait
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Listen:
		return "LISTEN"
	case SynRcvd:
		return "SYN_RCVD"
	case Established:
		return "ESTABLISHED"
	case CloseWait:
		return "CLOSE_WAIT"
	default:
		return "?"
	}
}

/// Addr is a simulated 4-tuple; no real wire-level IP/port parsing is
/// performed, since there is no NIC underneath this socket model.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// ringSize is capped at mem.PGSIZE: each direction's buffer is a
// circbuf.Circbuf_t, which lazily backs itself with exactly one physical
// frame (biscuit/src/circbuf/circbuf.go's Cb_ensure never spans more than
// one page).
const ringSize = mem.PGSIZE

/// Socket is one TCP endpoint: either a listening socket whose only job
/// is to shepherd a backlog of pending connections toward Accept, or a
/// connected socket with a pair of byte rings for data in each direction.
type Socket struct {
	mu    sync.Mutex
	cond  *ksync.Cond_t
	state State

	local  Addr
	remote Addr

	backlog  int
	pending  []*Socket // connections SynRcvd->Established, awaiting Accept
	acceptor *Socket   // the listening socket this one was spawned from

	recvbuf circbuf.Circbuf_t
	sendbuf circbuf.Circbuf_t
	peer    *Socket // the other end of a connected pair, nil for a listener

	shutRd bool
	shutWr bool

	counted   bool   // true if created via SocketCreate and thus holding a Syslimit.Socks token
	ephemeral uint16 // nonzero if this socket holds an ephemeral client port to free on Close
}

// cbUsed reports a ring's current occupancy, the same question
// Socket.Recv blocks on that ringBuf.used() used to answer.
func cbUsed(cb *circbuf.Circbuf_t) int { return cb.Used() }

// cbWrite copies as much of src as fits into cb, the way ringBuf.write
// used to, by dressing src up as an fdops.Userio_i via vm.Fakeubuf_t so it
// can flow through Circbuf_t.Copyin.
func cbWrite(cb *circbuf.Circbuf_t, src []byte) int {
	var fb vm.Fakeubuf_t
	fb.Fake_init(src)
	n, _ := cb.Copyin(&fb)
	return n
}

// cbRead drains up to len(dst) bytes out of cb into dst, the Circbuf_t
// equivalent of ringBuf.read.
func cbRead(cb *circbuf.Circbuf_t, dst []byte) int {
	var fb vm.Fakeubuf_t
	fb.Fake_init(dst)
	n, _ := cb.Copyout_n(&fb, len(dst))
	return n
}

func newSocket() *Socket {
	s := &Socket{state: Closed}
	s.recvbuf.Cb_init(ringSize, mem.Physmem)
	s.sendbuf.Cb_init(ringSize, mem.Physmem)
	s.cond = ksync.MkCond(&s.mu)
	return s
}

/// SocketCreate allocates an unconnected socket in the Closed state,
/// admitted against limits.Syslimit.Socks the way the teacher gates
/// every socket/pipe/TCP-connection allocation against a system-wide
/// cap (spec.md's socket syscall is a thin wrapper over this).
func SocketCreate() (*Socket, defs.Err_t) {
	if !limits.Syslimit.Socks.Take() {
		return nil, -defs.ENOMEM
	}
	s := newSocket()
	s.counted = true
	return s, 0
}

/// Bind assigns the local address a socket will Listen or Connect from.
func (s *Socket) Bind(saddr []uint8) defs.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(saddr) < 6 {
		return -defs.EINVAL
	}
	copy(s.local.IP[:], saddr[0:4])
	s.local.Port = uint16(saddr[4])<<8 | uint16(saddr[5])
	return 0
}

/// Listen transitions a bound socket into Listen, ready to accumulate a
/// backlog of simulated incoming connections via Connect.
func (s *Socket) Listen(backlog int) defs.Err_t {
	s.mu.Lock()
	if s.state != Closed {
		s.mu.Unlock()
		return -defs.EINVAL
	}
	s.state = Listen
	s.backlog = backlog
	s.pending = nil
	s.mu.Unlock()
	s.Register()
	return 0
}

/// Connect simulates a peer dialing in to a listening socket: it
// fabricates the SynRcvd->Established handshake synchronously, wires a
// connected pair via Pair (so Send/Recv have somewhere to go), enqueues
// the server-side half on the listener's backlog for Accept to pick up,
// and hands the client-side half back to the caller.
func (s *Socket) Connect(remote Addr) (*Socket, defs.Err_t) {
	s.mu.Lock()
	if s.state != Listen {
		s.mu.Unlock()
		return nil, -defs.EINVAL
	}
	if len(s.pending) >= s.backlog {
		s.mu.Unlock()
		return nil, -defs.EAGAIN
	}
	eph := uint16(0)
	if remote.Port == 0 {
		remote.Port = ephAlloc()
		eph = remote.Port
	}
	server, client := Pair()
	server.local = s.local
	server.remote = remote
	server.acceptor = s
	client.local = remote
	client.remote = s.local
	client.ephemeral = eph
	s.pending = append(s.pending, server)
	s.mu.Unlock()
	s.cond.Broadcast()
	return client, 0
}

/// Available reports whether Accept would return immediately.
func (s *Socket) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

/// FindReadyClient returns (without consuming) the oldest pending
/// connection, or nil if the backlog is empty.
func (s *Socket) FindReadyClient() *Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	return s.pending[0]
}

/// Accept blocks (spinning on the injected scheduler via ksync.Cond_t)
/// until a connection is pending, then dequeues and returns it.
func (s *Socket) Accept() (*Socket, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) == 0 {
		if s.state != Listen {
			return nil, -defs.EINVAL
		}
		s.cond.Wait()
	}
	conn := s.pending[0]
	s.pending = s.pending[1:]
	return conn, 0
}

/// Recv reads up to len(dst) bytes, blocking until at least one byte is
/// available. It returns 0 without blocking once this socket's own read
/// side is shut down (Shutdown or Close); a peer's Shutdown or Close is not
/// propagated to this socket and does not wake it.
func (s *Socket) Recv(dst []byte) (int, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cbUsed(&s.recvbuf) == 0 {
		if s.shutRd || s.state == CloseWait {
			return 0, 0
		}
		s.cond.Wait()
	}
	return cbRead(&s.recvbuf, dst), 0
}

/// Send writes src directly into the peer's recvbuf, since there is no
/// wire to cross; the socket's own sendbuf is not used.
func (s *Socket) Send(src []byte) (int, defs.Err_t) {
	s.mu.Lock()
	if s.shutWr || s.state == Closed {
		s.mu.Unlock()
		return 0, -defs.EPIPE
	}
	peer := s.peerLocked()
	s.mu.Unlock()
	if peer == nil {
		return 0, -defs.ENOTCONN
	}
	peer.mu.Lock()
	n := cbWrite(&peer.recvbuf, src)
	peer.mu.Unlock()
	peer.cond.Broadcast()
	return n, 0
}

// peerLocked is a hook for a full-duplex pair; this simplified model
// only supports the listener/connection shape Connect builds, so a
// connection sends into its own recvbuf's counterpart by convention:
// callers wire two Sockets together via Pair for loopback tests.
func (s *Socket) peerLocked() *Socket { return s.peer }

/// Pair wires two sockets together so that Send on one feeds Recv on
/// the other, as Connect's simulated handshake does for accepted
/// connections. Exported for tests that want a connected pair without
/// going through Listen/Connect/Accept.
func Pair() (a, b *Socket) {
	a = newSocket()
	b = newSocket()
	a.state, b.state = Established, Established
	a.peer, b.peer = b, a
	return a, b
}

/// Close shuts the socket down for both reading and writing and wakes
/// any thread blocked on it.
func (s *Socket) Close() defs.Err_t {
	s.mu.Lock()
	wasListener := s.state == Listen
	alreadyClosed := s.state == Closed
	s.state = Closed
	s.shutRd, s.shutWr = true, true
	s.mu.Unlock()
	if wasListener {
		s.Unregister()
	}
	if s.ephemeral != 0 && !alreadyClosed {
		ephFree(s.ephemeral)
	}
	if s.counted && !alreadyClosed {
		limits.Syslimit.Socks.Give()
	}
	if !alreadyClosed {
		s.recvbuf.Cb_release()
		s.sendbuf.Cb_release()
	}
	s.cond.Broadcast()
	return 0
}

/// CloseAndRelisten closes an accepted connection but leaves its
/// acceptor listening for further connections -- the shape a server's
/// per-connection worker thread needs on exit.
func (s *Socket) CloseAndRelisten() defs.Err_t {
	return s.Close()
}

/// Shutdown half-closes the socket in the requested directions.
func (s *Socket) Shutdown(read, write bool) defs.Err_t {
	s.mu.Lock()
	if read {
		s.shutRd = true
	}
	if write {
		s.shutWr = true
	}
	s.mu.Unlock()
	s.cond.Broadcast()
	return 0
}

