package vfs

import (
	"sync"

	"defs"
	"fdops"
)

/// File adapts an FS + Fnode pair to fdops.Fdops_i, tracking its own
/// read/write offset the way a POSIX fd does, so it can occupy a slot in
/// a process's fd.Table next to the console and inet sockets.
type File struct {
	mu   sync.Mutex
	fs   FS
	n    Fnode
	path string
	off  int
}

var _ fdops.Fdops_i = (*File)(nil)

/// NewFile wraps n (already resolved within fs) as an open file
/// descriptor positioned at offset 0.
func NewFile(fs FS, n Fnode, path string) *File {
	return &File{fs: fs, n: n, path: path}
}

func (f *File) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, dst.Remain())
	got, err := f.fs.Read(f.n, buf, f.off)
	if err != 0 {
		return 0, err
	}
	wrote, err := dst.Uiowrite(buf[:got])
	if err != 0 {
		return 0, err
	}
	f.off += wrote
	return wrote, 0
}

func (f *File) Write(src fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	put, err := f.fs.Write(f.n, buf[:n], f.off)
	if err != 0 {
		return 0, err
	}
	f.off += put
	return put, 0
}

func (f *File) Close() defs.Err_t {
	return f.fs.Close(f.n)
}

func (f *File) Reopen() defs.Err_t {
	return 0
}

func (f *File) Accept(fromer fdops.Userio_i) (fdops.Fdops_i, int, defs.Err_t) {
	return nil, 0, -defs.ENOTSUP
}

func (f *File) Listen(backlog int) defs.Err_t { return -defs.ENOTSUP }

func (f *File) Bind(saddr []uint8) defs.Err_t { return -defs.ENOTSUP }

func (f *File) Shutdown(read, write bool) defs.Err_t { return -defs.ENOTSUP }

func (f *File) Fullpath() (string, defs.Err_t) {
	return f.path, 0
}

/// Readdir lists f's directory entries; ENOTDIR if f is not a directory,
/// propagated straight from the underlying FS.
func (f *File) Readdir() ([]Dirent, defs.Err_t) {
	return f.fs.Readdir(f.n)
}

/// Node exposes the underlying Fnode.
func (f *File) Node() Fnode { return f.n }
