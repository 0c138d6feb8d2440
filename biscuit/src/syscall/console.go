package syscall

import (
	"defs"
	"kheap"
	"process"
)

// bufferedReader is implemented by an fd whose input can be polled without
// consuming it -- compat.Console is the only one in this rewrite, but
// sysKbhit degrades to "nothing buffered" for any fd that isn't one rather
// than assuming the concrete console type.
type bufferedReader interface {
	Buffered() int
}

/// sysKbhit implements the non-blocking keyboard poll spec.md §6 names:
/// 1 if fd 0 has input already buffered, 0 otherwise, never blocking.
func sysKbhit(p *process.PCB) int {
	fdv, err := p.Fds.Get(0)
	if err != 0 {
		return int(err)
	}
	br, ok := fdv.Fops.(bufferedReader)
	if !ok {
		return 0
	}
	if br.Buffered() > 0 {
		return 1
	}
	return 0
}

/// sysMeminfo copies heap's human-readable size/stats report into the
/// user buffer at uva, truncating to fit within l bytes.
func sysMeminfo(heap *kheap.Heap, p *process.PCB, uva uintptr, l int) int {
	out := []byte(heap.MemInfoString())
	if len(out) > l {
		out = out[:l]
	}
	if err := p.AS.CopyTo(uva, out); err != 0 {
		return int(err)
	}
	return len(out)
}
