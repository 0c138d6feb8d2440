// Package fd implements the per-process file descriptor table: a fixed-size
// array of Fd_t slots, with slots 0-2 pre-reserved as the console (stdin,
// stdout, stderr), plus the current-working-directory tracking the shell's
// cd/pwd built on.
package fd

import (
	"sync"

	"bpath"
	"defs"
	"fdops"
	"ustr"
)

/// File descriptor permission bits.
const (
	FD_READ    = 0x1 /// read permission
	FD_WRITE   = 0x2 /// write permission
	FD_CLOEXEC = 0x4 /// close-on-exec flag
)

/// NFDS is the number of descriptor slots in a process's table.
const NFDS = 64

/// Fd_t represents an open file descriptor.
type Fd_t struct {
	// Fops is an interface implemented via a pointer receiver, thus Fops
	// is a reference, not a value.
	Fops  fdops.Fdops_i /// descriptor operations
	Perms int           /// permission bits
}

/// Copyfd duplicates an open file descriptor by reopening it.
func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

/// Close_panic closes the descriptor and panics on failure.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

/// Cwd_t tracks the current working directory for a process.
type Cwd_t struct {
	sync.Mutex // to serialize chdirs
	Fd   *Fd_t     /// current directory fd
	Path ustr.Ustr /// canonical path
}

/// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	full := append(append(ustr.Ustr{}, cwd.Path...), '/')
	return append(full, p...)
}

/// Canonicalpath resolves path components relative to cwd.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	p1 := cwd.Fullpath(p)
	return bpath.Canonicalize(p1)
}

/// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(fdv *Fd_t) *Cwd_t {
	c := &Cwd_t{}
	c.Fd = fdv
	c.Path = ustr.MkUstrRoot()
	return c
}

// Slot tags distinguishing what, if anything, occupies a descriptor slot.
// Slots 0-2 are reserved as console fds for every process from birth.
type slottag_t int

const (
	tagNone slottag_t = iota
	tagOpen
)

/// Table is a process's fixed-size file descriptor table. Slots 0, 1 and 2
/// are pre-populated with the console descriptor when the table is
/// created; Open installs a new descriptor in the lowest free slot at or
/// above 0, matching POSIX's lowest-available-fd rule.
type Table struct {
	sync.Mutex
	slots [NFDS]*Fd_t
	tags  [NFDS]slottag_t
}

/// NewTable creates a descriptor table with slots 0-2 occupied by console.
func NewTable(console *Fd_t) *Table {
	t := &Table{}
	for i := 0; i < 3; i++ {
		cfd := &Fd_t{}
		*cfd = *console
		t.slots[i] = cfd
		t.tags[i] = tagOpen
	}
	return t
}

/// Open installs fdv in the lowest free slot and returns its number.
func (t *Table) Open(fdv *Fd_t) (int, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	for i := 0; i < NFDS; i++ {
		if t.tags[i] == tagNone {
			t.slots[i] = fdv
			t.tags[i] = tagOpen
			return i, 0
		}
	}
	return 0, -defs.EMFILE
}

/// OpenAt installs fdv at a specific slot number, closing whatever
/// descriptor already occupies that slot; it fails with EBADF if n is out
/// of range. Used by dup2-style syscalls.
func (t *Table) OpenAt(n int, fdv *Fd_t) defs.Err_t {
	if n < 0 || n >= NFDS {
		return -defs.EBADF
	}
	t.Lock()
	defer t.Unlock()
	if t.tags[n] == tagOpen {
		Close_panic(t.slots[n])
	}
	t.slots[n] = fdv
	t.tags[n] = tagOpen
	return 0
}

/// Get returns the descriptor at slot n.
func (t *Table) Get(n int) (*Fd_t, defs.Err_t) {
	if n < 0 || n >= NFDS {
		return nil, -defs.EBADF
	}
	t.Lock()
	defer t.Unlock()
	if t.tags[n] != tagOpen {
		return nil, -defs.EBADF
	}
	return t.slots[n], 0
}

/// Close releases the descriptor at slot n.
func (t *Table) Close(n int) defs.Err_t {
	t.Lock()
	defer t.Unlock()
	if n < 0 || n >= NFDS || t.tags[n] != tagOpen {
		return -defs.EBADF
	}
	err := t.slots[n].Fops.Close()
	t.slots[n] = nil
	t.tags[n] = tagNone
	return err
}

/// Copy duplicates the whole table for a new process (minus CLOEXEC fds,
/// which the caller should filter before an exec but not before this raw
/// copy used at process-creation time).
func (t *Table) Copy() (*Table, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	nt := &Table{}
	for i := 0; i < NFDS; i++ {
		if t.tags[i] != tagOpen {
			continue
		}
		nfd, err := Copyfd(t.slots[i])
		if err != 0 {
			return nil, err
		}
		nt.slots[i] = nfd
		nt.tags[i] = tagOpen
	}
	return nt, 0
}

/// CloseAll closes every open descriptor, used when a process exits.
func (t *Table) CloseAll() {
	t.Lock()
	defer t.Unlock()
	for i := 0; i < NFDS; i++ {
		if t.tags[i] == tagOpen {
			Close_panic(t.slots[i])
			t.slots[i] = nil
			t.tags[i] = tagNone
		}
	}
}
