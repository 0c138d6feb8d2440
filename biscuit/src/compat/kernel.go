// Package compat is the C9 compat shim: the boundary between the
// simulated kernel (mem, vm, sched, process, vfs, inet, syscall) and a
// host test process driving it. It owns the pieces a real bootloader/BSP
// init path would set up once -- physical memory, the scheduler, the root
// filesystem, the console device -- and wires ksync's scheduler
// injection, mirroring the one-time init sequence spec.md §8 describes
// even though nothing here actually boots real hardware.
package compat

import (
	"io"

	"defs"
	"fd"
	"kheap"
	"ksync"
	"mem"
	"process"
	"sched"
	"syscall"
	"vfs"
)

const defaultFrames = 16 * 1024 // 64MB of simulated physical memory

/// Kernel bundles the singletons a running simulated system needs.
type Kernel struct {
	Sched   *sched.Scheduler
	Heap    *kheap.Heap
	FS      vfs.FS
	Console *fd.Fd_t
}

/// Boot performs the one-time kernel init sequence: physical memory,
/// scheduler, ksync wiring, heap, root filesystem, console device. in/out
/// back the console; pass a MemDisk-backed vfs.NewMemFS(vfs.NewMemDisk(n))
/// by default, or swap in a vfs.FileDisk for persistence across runs.
func Boot(in io.Reader, out io.Writer, fs vfs.FS) *Kernel {
	mem.Phys_init(defaultFrames, 0)
	s := sched.NewScheduler()
	ksync.SetScheduler(s)

	cons := &fd.Fd_t{Fops: NewConsole(in, out), Perms: fd.FD_READ | fd.FD_WRITE}

	return &Kernel{
		Sched:   s,
		Heap:    kheap.New(),
		FS:      fs,
		Console: cons,
	}
}

/// Spawn loads file as a fresh user process's image and creates its main
/// thread, returning the PCB and the simulated ring-3 entry frame a real
/// iret would restore.
func (k *Kernel) Spawn(file elfFile, argv []string, parent *process.PCB) (*process.PCB, process.EntryFrame, defs.Err_t) {
	return process.CreateUserProcess(k.Sched, file, k.Console, parent, argv)
}

type elfFile interface {
	ReadAt(p []byte, off int64) (int, error)
}

/// Syscall runs one syscall dispatch for p against this kernel's
/// scheduler and filesystem.
func (k *Kernel) Syscall(p *process.PCB, frame *syscall.RegFrame) {
	syscall.Dispatch(k.Sched, k.FS, k.Heap, p, frame)
}
