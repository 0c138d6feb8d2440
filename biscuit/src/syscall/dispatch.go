// Package syscall implements the kernel's syscall dispatch layer (spec.md
// §6): decoding the simulated register frame a ring-3 trap would deliver,
// routing to the fd table for file-descriptor-shaped calls, and brokering
// VFS/socket requests between a process and its collaborators. Grounded
// on the teacher's own syscall switch shape (one case per syscall number,
// argument decode up front, fd lookup through the process's table) even
// though the teacher's actual syscall.go was not present in the retrieved
// pack -- this follows the dispatch style visible in fd.go and fdops.go's
// contracts instead.
package syscall

import (
	"defs"
	"fd"
	"fdops"
	"kheap"
	"process"
	"sched"
	"ustr"
	"vfs"
	"vm"
)

/// RegFrame simulates the register state a syscall trap (int $0x80, per
/// spec.md §6) would deliver: syscall number in Rax, up to six arguments
/// in the System V AMD64 syscall registers. The kernel never actually
/// traps here -- Dispatch is called directly with a frame a test or the
/// compat shim constructs.
type RegFrame struct {
	Rax uintptr // syscall number in, return value out
	Rdi uintptr
	Rsi uintptr
	Rdx uintptr
	R10 uintptr
	R8  uintptr
	R9  uintptr
}

/// Dispatch decodes frame and executes the named syscall against p,
/// reading/writing p's address space for any pointer arguments and p's fd
/// table for descriptor arguments. fs is the filesystem backing
/// path-based calls (open/mkdir/create/readdir/chdir); s is the
/// scheduler backing exit; heap backs the clear/meminfo console
/// introspection calls. The syscall's return value (or -errno) is written
/// back into frame.Rax, matching the ABI a real trap return would restore
/// into rax.
func Dispatch(s *sched.Scheduler, fs vfs.FS, heap *kheap.Heap, p *process.PCB, frame *RegFrame) {
	frame.Rax = uintptr(dispatch(s, fs, heap, p, frame))
}

func dispatch(s *sched.Scheduler, fs vfs.FS, heap *kheap.Heap, p *process.PCB, frame *RegFrame) int {
	switch int(frame.Rax) {
	case defs.SYS_EXIT:
		process.Exit(s, p, int(frame.Rdi))
		return 0

	case defs.SYS_GETPID:
		return int(p.Pid)

	case defs.SYS_READ:
		return sysReadWrite(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx), false)

	case defs.SYS_WRITE:
		return sysReadWrite(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx), true)

	case defs.SYS_CLOSE:
		return int(p.Fds.Close(int(frame.Rdi)))

	case defs.SYS_OPEN:
		return sysOpen(fs, p, frame.Rdi, int(frame.Rsi))

	case defs.SYS_CREATE:
		return sysCreate(fs, p, frame.Rdi)

	case defs.SYS_MKDIR:
		return sysMkdir(fs, p, frame.Rdi)

	case defs.SYS_CHDIR:
		return sysChdir(fs, p, frame.Rdi)

	case defs.SYS_GETCWD:
		return sysGetcwd(p, frame.Rdi, int(frame.Rsi))

	case defs.SYS_READDIR:
		return sysReaddir(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx))

	case defs.SYS_SOCKET:
		return sysSocket(p)

	case defs.SYS_BIND:
		return sysSockCall(p, int(frame.Rdi), func(fops fdops.Fdops_i) int {
			return int(fops.Bind(readUserBytes(p, frame.Rsi, int(frame.Rdx))))
		})

	case defs.SYS_LISTEN:
		return sysSockCall(p, int(frame.Rdi), func(fops fdops.Fdops_i) int {
			return int(fops.Listen(int(frame.Rsi)))
		})

	case defs.SYS_ACCEPT:
		return sysAccept(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx))

	case defs.SYS_SEND:
		return sysReadWrite(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx), true)

	case defs.SYS_RECV:
		return sysReadWrite(p, int(frame.Rdi), frame.Rsi, int(frame.Rdx), false)

	case defs.SYS_KBHIT:
		return sysKbhit(p)

	case defs.SYS_CLEAR:
		heap.ResetStats()
		return 0

	case defs.SYS_MEMINFO:
		return sysMeminfo(heap, p, frame.Rdi, int(frame.Rsi))

	default:
		return int(-defs.ENOSYS)
	}
}

func sysReadWrite(p *process.PCB, fdn int, uva uintptr, l int, write bool) int {
	fdv, err := p.Fds.Get(fdn)
	if err != 0 {
		return int(err)
	}
	var ub vm.Userbuf_t
	ub.Ub_init(p.AS, uva, l)
	if write {
		n, err := fdv.Fops.Write(&ub)
		if err != 0 {
			return int(err)
		}
		return n
	}
	n, err := fdv.Fops.Read(&ub)
	if err != 0 {
		return int(err)
	}
	return n
}

func readUserBytes(p *process.PCB, uva uintptr, l int) []byte {
	buf := make([]byte, l)
	if p.AS.CopyFrom(buf, uva) != 0 {
		return nil
	}
	return buf
}

const maxPath = 512

func sysOpen(fs vfs.FS, p *process.PCB, uva uintptr, flags int) int {
	path, err := p.AS.Userstr(uva, maxPath)
	if err != 0 {
		return int(err)
	}
	full := canon(p, path)
	n, ferr := fs.Open(full, flags)
	if ferr != 0 {
		return int(ferr)
	}
	fdv := &fd.Fd_t{Fops: vfs.NewFile(fs, n, full), Perms: permsFromFlags(flags)}
	slot, ferr := p.Fds.Open(fdv)
	if ferr != 0 {
		return int(ferr)
	}
	return slot
}

func permsFromFlags(flags int) int {
	perms := 0
	switch flags & 0x3 {
	case defs.O_RDONLY:
		perms = fd.FD_READ
	case defs.O_WRONLY:
		perms = fd.FD_WRITE
	case defs.O_RDWR:
		perms = fd.FD_READ | fd.FD_WRITE
	}
	return perms
}

func sysCreate(fs vfs.FS, p *process.PCB, uva uintptr) int {
	path, err := p.AS.Userstr(uva, maxPath)
	if err != 0 {
		return int(err)
	}
	full := canon(p, path)
	n, ferr := fs.Create(full)
	if ferr != 0 {
		return int(ferr)
	}
	fdv := &fd.Fd_t{Fops: vfs.NewFile(fs, n, full), Perms: fd.FD_READ | fd.FD_WRITE}
	slot, ferr := p.Fds.Open(fdv)
	if ferr != 0 {
		return int(ferr)
	}
	return slot
}

func sysMkdir(fs vfs.FS, p *process.PCB, uva uintptr) int {
	path, err := p.AS.Userstr(uva, maxPath)
	if err != 0 {
		return int(err)
	}
	return int(fs.Mkdir(canon(p, path)))
}

func sysChdir(fs vfs.FS, p *process.PCB, uva uintptr) int {
	path, err := p.AS.Userstr(uva, maxPath)
	if err != 0 {
		return int(err)
	}
	full := canon(p, path)
	if _, ferr := fs.ResolvePath(full); ferr != 0 {
		return int(ferr)
	}
	p.Cwd.Lock()
	p.Cwd.Path = ustr.Ustr(full)
	p.Cwd.Unlock()
	return 0
}

func sysGetcwd(p *process.PCB, uva uintptr, l int) int {
	p.Cwd.Lock()
	path := string(p.Cwd.Path)
	p.Cwd.Unlock()
	if path == "" {
		path = "/"
	}
	buf := append([]byte(path), 0)
	if len(buf) > l {
		return int(-defs.ENAMETOOLONG)
	}
	if err := p.AS.CopyTo(uva, buf); err != 0 {
		return int(err)
	}
	return len(path)
}

func sysReaddir(p *process.PCB, fdn int, uva uintptr, l int) int {
	fdv, err := p.Fds.Get(fdn)
	if err != 0 {
		return int(err)
	}
	vf, ok := fdv.Fops.(*vfs.File)
	if !ok {
		return int(-defs.ENOTDIR)
	}
	ents, ferr := vf.Readdir()
	if ferr != 0 {
		return int(ferr)
	}
	var out []byte
	for _, e := range ents {
		out = append(out, []byte(e.Name)...)
		out = append(out, 0)
	}
	if len(out) > l {
		out = out[:l]
	}
	if err := p.AS.CopyTo(uva, out); err != 0 {
		return int(err)
	}
	return len(out)
}

func canon(p *process.PCB, path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	p.Cwd.Lock()
	cwd := string(p.Cwd.Path)
	p.Cwd.Unlock()
	if cwd == "" {
		return "/" + path
	}
	return cwd + "/" + path
}
