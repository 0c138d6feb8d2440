package vm

import (
	"fmt"
	"sync"

	"defs"
)

/// Userbuf_t assists reading and writing user memory, crossing page
/// boundaries transparently.
type Userbuf_t struct {
	userva uintptr
	len    int
	off    int
	as     *AS
}

/// Ub_init initialises the buffer for the given address space.
func (ub *Userbuf_t) Ub_init(as *AS, uva uintptr, l int) {
	if l < 0 {
		panic("negative length")
	}
	ub.userva = uva
	ub.len = l
	ub.off = 0
	ub.as = as
}

/// Remain returns the number of unread bytes left in the buffer.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

/// Totalsz reports the total size of the buffer in bytes.
func (ub *Userbuf_t) Totalsz() int {
	return ub.len
}

/// Uioread copies data from user memory into dst.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub.tx(dst, false)
}

/// Uiowrite copies data from src into user memory.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub.tx(src, true)
}

func (ub *Userbuf_t) tx(buf []uint8, write bool) (int, defs.Err_t) {
	n := len(buf)
	if rem := ub.Remain(); n > rem {
		n = rem
	}
	var err defs.Err_t
	if write {
		err = ub.as.CopyTo(ub.userva+uintptr(ub.off), buf[:n])
	} else {
		err = ub.as.CopyFrom(buf[:n], ub.userva+uintptr(ub.off))
	}
	if err != 0 {
		return 0, err
	}
	ub.off += n
	return n, 0
}

/// Fakeubuf_t implements the same interface as Userbuf_t but operates on a
/// plain kernel buffer, for callers that need to treat kernel memory like
/// user memory (e.g. the console driver writing kernel-generated output
/// through the same fdops.Userio_i path a real user buffer would take).
type Fakeubuf_t struct {
	fbuf []uint8
	len  int
}

/// Fake_init sets up the fake buffer with the provided slice.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.fbuf = buf
	fb.len = len(buf)
}

/// Remain returns the number of bytes left in the fake buffer.
func (fb *Fakeubuf_t) Remain() int {
	return len(fb.fbuf)
}

/// Totalsz returns the total length of the fake buffer.
func (fb *Fakeubuf_t) Totalsz() int {
	return fb.len
}

func (fb *Fakeubuf_t) tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.fbuf, buf)
	} else {
		c = copy(buf, fb.fbuf)
	}
	fb.fbuf = fb.fbuf[c:]
	return c, 0
}

/// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return fb.tx(dst, false)
}

/// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return fb.tx(src, true)
}

/// Useriovec_t represents a sequence of user buffers described by an iovec
/// array already read out of user memory (readv/writev-style syscalls).
type Useriovec_t struct {
	bases []uintptr
	sizes []int
	tsz   int
	as    *AS
}

/// Iov_init initialises the iovec list from already-decoded (base, size)
/// pairs -- the syscall layer reads the raw iovec array out of user memory
/// itself and hands the decoded pairs in here, rather than this package
/// reaching back into user memory a second time.
func (iov *Useriovec_t) Iov_init(as *AS, bases []uintptr, sizes []int) defs.Err_t {
	if len(bases) != len(sizes) {
		panic("mismatched iovec arrays")
	}
	if len(bases) > 10 {
		fmt.Printf("many iovecs\n")
		return -defs.EINVAL
	}
	iov.as = as
	iov.bases = bases
	iov.sizes = sizes
	iov.tsz = 0
	for _, s := range sizes {
		iov.tsz += s
	}
	return 0
}

/// Remain returns the number of bytes remaining across all iovecs.
func (iov *Useriovec_t) Remain() int {
	r := 0
	for _, s := range iov.sizes {
		r += s
	}
	return r
}

/// Totalsz returns the total number of bytes described by the iovec array.
func (iov *Useriovec_t) Totalsz() int {
	return iov.tsz
}

func (iov *Useriovec_t) tx(buf []uint8, touser bool) (int, defs.Err_t) {
	did := 0
	for len(buf) > 0 && len(iov.bases) > 0 {
		ub := &Userbuf_t{}
		ub.Ub_init(iov.as, iov.bases[0], iov.sizes[0])
		var c int
		var err defs.Err_t
		if touser {
			c, err = ub.tx(buf, true)
		} else {
			c, err = ub.tx(buf, false)
		}
		iov.bases[0] += uintptr(c)
		iov.sizes[0] -= c
		if iov.sizes[0] == 0 {
			iov.bases = iov.bases[1:]
			iov.sizes = iov.sizes[1:]
		}
		buf = buf[c:]
		did += c
		if err != 0 {
			return did, err
		}
	}
	return did, 0
}

/// Uioread reads into dst from the set of user buffers.
func (iov *Useriovec_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return iov.tx(dst, false)
}

/// Uiowrite writes src to the user buffers.
func (iov *Useriovec_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return iov.tx(src, true)
}

/// Ubpool provides reusable Userbuf_t structures to reduce allocations.
var Ubpool = sync.Pool{New: func() interface{} { return new(Userbuf_t) }}
