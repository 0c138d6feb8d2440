package vfs

import (
	"defs"
	"stat"
)

const (
	modeDir  = 0040000
	modeFile = 0100000
)

/// Stat fills st with n's metadata, grounded on the teacher's stat.Stat_t
/// field-setter style (Wmode/Wsize/Wino).
func (fs *MemFS) Stat(n Fnode, st *stat.Stat_t) defs.Err_t {
	fs.mu.Lock()
	in, ok := fs.inodes[n]
	fs.mu.Unlock()
	if !ok {
		return -defs.ENOENT
	}
	st.Wino(uint(n))
	if in.kind == kindDir {
		st.Wmode(modeDir)
	} else {
		st.Wmode(modeFile)
		st.Wsize(uint(in.size))
	}
	return 0
}

// statter is implemented by an FS that can report inode metadata; MemFS
// is the only FS in this rewrite, but File.Stat degrades to ENOTSUP for
// any other FS rather than assuming the concrete type.
type statter interface {
	Stat(n Fnode, st *stat.Stat_t) defs.Err_t
}

/// Stat fills st with this file's metadata.
func (f *File) Stat(st *stat.Stat_t) defs.Err_t {
	sf, ok := f.fs.(statter)
	if !ok {
		return -defs.ENOTSUP
	}
	return sf.Stat(f.n, st)
}
