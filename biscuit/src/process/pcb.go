// Package process implements the process abstraction: creating a fresh
// address space, loading an ELF image into it, laying out argv/a user
// stack, and handing the result to sched as a thread whose saved register
// state simulates the CPU-pushed interrupt frame a real iret-to-ring-3
// would restore. There is no real ring transition in this rewrite --
// EntryFrame is asserted against directly in tests instead of iret'd.
package process

import (
	"accnt"
	"defs"
	"elfload"
	"fd"
	"mem"
	"sched"
	"vm"
)

// Layout constants for a freshly created user address space. Real values
// in a genuine x86-64 kernel; here they only need to be internally
// consistent since vm.AS has no notion of a real canonical-address split.
const (
	UserStackTop  = uintptr(0x0000_7fff_ffff_f000)
	UserStackSize = 8 * mem.PGSIZE
	RFLAGS_IF     = uintptr(1 << 9)
)

/// EntryFrame simulates the register state the CPU would push onto the
/// kernel stack on a ring-3 trap, restored by the trap-return path on a
/// real interrupt and examined directly by tests here. Field names match
/// spec's description: user-stack selector, stack pointer, flags,
/// code selector, instruction pointer.
type EntryFrame struct {
	SS     uintptr
	RSP    uintptr
	RFLAGS uintptr
	CS     uintptr
	RIP    uintptr
}

/// PCB is a process control block.
type PCB struct {
	Pid    defs.Pid_t
	Parent *PCB
	Children []*PCB

	AS    *vm.AS
	Fds   *fd.Table
	Cwd   *fd.Cwd_t

	MainTid defs.Tid_t
	Threads []defs.Tid_t

	State      defs.Pstate_t
	ExitStatus int

	Accnt *accnt.Accnt_t
}

var (
	nextPid defs.Pid_t = 1
)

/// CreateUserProcess allocates a PCB, a fresh address space, loads file
/// into it via elfload.Load, maps a user stack, writes the argv block onto
/// it piece by piece via vm.AS.CopyTo, then
/// asks s to create the initial user thread with a simulated ring-3 entry
/// frame. The thread, when first scheduled, would resume through the trap
/// return path into ring 3 on real hardware.
func CreateUserProcess(s *sched.Scheduler, file elfFile, console *fd.Fd_t,
	parent *PCB, argv []string) (*PCB, EntryFrame, defs.Err_t) {

	as, err := vm.CreateDirectory()
	if err != 0 {
		return nil, EntryFrame{}, err
	}

	img, err := elfload.Load(file, as)
	if err != 0 {
		as.FreeDirectory()
		return nil, EntryFrame{}, err
	}

	if err := mapUserStack(as); err != 0 {
		as.FreeDirectory()
		return nil, EntryFrame{}, err
	}

	sp, err := writeArgv(as, argv)
	if err != 0 {
		as.FreeDirectory()
		return nil, EntryFrame{}, err
	}

	p := &PCB{
		Pid:    nextPid,
		Parent: parent,
		AS:     as,
		Fds:    fd.NewTable(console),
		Accnt:  &accnt.Accnt_t{},
	}
	p.Cwd = fd.MkRootCwd(console)
	nextPid++
	if parent != nil {
		parent.Children = append(parent.Children, p)
	}
	p.State = defs.PReady

	t := s.NewThread(p.Pid, 0)
	p.MainTid = t.Tid
	p.Threads = []defs.Tid_t{t.Tid}

	ef := EntryFrame{
		SS:     0x23, // user data selector, ring 3
		RSP:    sp,
		RFLAGS: RFLAGS_IF,
		CS:     0x1b, // user code selector, ring 3
		RIP:    img.Entry,
	}
	return p, ef, 0
}

// elfFile is the minimal io.ReaderAt elfload.Load needs; named here so
// callers (the compat shim, tests) can pass an *os.File or a bytes.Reader
// without process importing io directly just for this one alias.
type elfFile interface {
	ReadAt(p []byte, off int64) (int, error)
}

func mapUserStack(as *vm.AS) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	base := UserStackTop - uintptr(UserStackSize)
	for va := base; va < UserStackTop; va += uintptr(mem.PGSIZE) {
		_, p_pg, ok := mem.Physmem.Refpg_new()
		if !ok {
			return -defs.ENOMEM
		}
		if err := as.MapPage(va, p_pg, mem.PTE_U|mem.PTE_W); err != 0 {
			mem.Physmem.Refdown(p_pg)
			return err
		}
		mem.Physmem.Refdown(p_pg)
	}
	return 0
}

// writeArgv lays out argc, an argv[] pointer array, and the argument
// strings themselves at the top of the user stack, returning the initial
// RSP a freshly started process expects: pointing at argc.
func writeArgv(as *vm.AS, argv []string) (uintptr, defs.Err_t) {
	sp := UserStackTop

	strAddrs := make([]uintptr, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		s := argv[i]
		buf := append([]byte(s), 0)
		sp -= uintptr(len(buf))
		sp &^= 0x7
		if err := as.CopyTo(sp, buf); err != 0 {
			return 0, err
		}
		strAddrs[i] = sp
	}

	// argv pointer array, NULL terminated
	sp -= uintptr(8)
	if err := as.CopyTo(sp, encodeU64(0)); err != 0 {
		return 0, err
	}
	for i := len(strAddrs) - 1; i >= 0; i-- {
		sp -= uintptr(8)
		if err := as.CopyTo(sp, encodeU64(uint64(strAddrs[i]))); err != 0 {
			return 0, err
		}
	}
	argvPtr := sp

	sp -= uintptr(8)
	if err := as.CopyTo(sp, encodeU64(uint64(argvPtr))); err != 0 {
		return 0, err
	}
	sp -= uintptr(8)
	if err := as.CopyTo(sp, encodeU64(uint64(len(argv)))); err != 0 {
		return 0, err
	}
	return sp, 0
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}
