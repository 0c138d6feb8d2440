// Package vfs implements the kernel's virtual filesystem layer: the
// FS collaborator contract the syscall package's file-backed operations
// delegate to, plus an in-memory reference implementation (MemFS) that is
// still block-oriented internally -- every file's bytes live in BSIZE disk
// blocks addressed through a Disk, exactly as the teacher's fs/blk.go and
// ufs/driver.go model a cached, disk-backed filesystem, except a real
// ext2 on-disk layout is an explicit non-goal here.
package vfs

import (
	"os"
	"sync"
)

/// BSIZE is the size of a disk block in bytes (fs/blk.go's constant,
/// unchanged).
const BSIZE = 4096

/// Disk abstracts a block device: something MemFS can read and write
/// fixed BSIZE blocks to, grounded on fs/blk.go's Disk_i interface.
type Disk interface {
	ReadBlock(n int) ([]byte, error)
	WriteBlock(n int, data []byte) error
	NumBlocks() int
}

/// MemDisk is a Disk backed entirely by a slice in memory -- the default
/// for a MemFS that needs no persistence across test runs.
type MemDisk struct {
	mu     sync.Mutex
	blocks [][]byte
}

/// NewMemDisk creates a MemDisk with n preallocated zeroed blocks.
func NewMemDisk(n int) *MemDisk {
	d := &MemDisk{blocks: make([][]byte, n)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, BSIZE)
	}
	return d
}

func (d *MemDisk) ReadBlock(n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.growTo(n)
	out := make([]byte, BSIZE)
	copy(out, d.blocks[n])
	return out, nil
}

func (d *MemDisk) WriteBlock(n int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.growTo(n)
	copy(d.blocks[n], data)
	return nil
}

func (d *MemDisk) NumBlocks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blocks)
}

func (d *MemDisk) growTo(n int) {
	for len(d.blocks) <= n {
		d.blocks = append(d.blocks, make([]byte, BSIZE))
	}
}

/// FileDisk is a Disk backed by a host file, adapted from ufs/driver.go's
/// ahci_disk_t (there backed by os.File and addressed by seek+read/write
/// per block). Lets file content written through a MemFS survive a restart
/// of the host test binary; MemFS's directory tree itself is an in-memory
/// index over those blocks and is rebuilt fresh on each NewMemFS (see
/// biscuit/scripts/mkfs, which replays the same host-directory walk rather
/// than deserializing a stored inode table -- a real on-disk inode/
/// superblock format is exactly what the ext2-layout non-goal excludes).
/// Persistence of simulated kernel/process state across a simulated
/// reboot of the kernel itself remains a non-goal.
type FileDisk struct {
	mu sync.Mutex
	f  *os.File
}

/// OpenFileDisk opens (creating if necessary) path as a block store.
func OpenFileDisk(path string) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDisk{f: f}, nil
}

func (d *FileDisk) ReadBlock(n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, BSIZE)
	// A short or zero read past EOF just means this block was never
	// written; the caller sees zeroes, as with a freshly-truncated
	// sparse file.
	d.f.ReadAt(buf, int64(n)*BSIZE)
	return buf, nil
}

func (d *FileDisk) WriteBlock(n int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, BSIZE)
	copy(buf, data)
	_, err := d.f.WriteAt(buf, int64(n)*BSIZE)
	return err
}

func (d *FileDisk) NumBlocks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	fi, err := d.f.Stat()
	if err != nil {
		return 0
	}
	return int(fi.Size() / BSIZE)
}

/// Close releases the underlying host file.
func (d *FileDisk) Close() error {
	return d.f.Close()
}
