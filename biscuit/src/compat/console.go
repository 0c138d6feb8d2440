package compat

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"defs"
	"fdops"
)

/// Console adapts a host io.Reader/io.Writer pair to fdops.Fdops_i,
/// standing in for the teacher's VGA+keyboard console device: in this
/// rewrite the "hardware" is whatever the host test process hands it,
/// commonly os.Stdin/os.Stdout or an in-memory pipe for scripted tests.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

var _ fdops.Fdops_i = (*Console)(nil)

/// NewConsole wraps in/out as a console device occupying fd slots 0-2.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, dst.Remain())
	n, err := c.in.Read(buf)
	if err != nil && n == 0 {
		return 0, 0
	}
	wrote, werr := dst.Uiowrite(buf[:n])
	if werr != 0 {
		return 0, werr
	}
	return wrote, 0
}

func (c *Console) Write(src fdops.Userio_i) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	if _, werr := c.out.Write(buf[:n]); werr != nil {
		return 0, -defs.EIO
	}
	return n, 0
}

func (c *Console) Close() defs.Err_t  { return 0 }
func (c *Console) Reopen() defs.Err_t { return 0 }

/// Buffered reports bytes already read off the host reader and sitting in
/// the internal buffer, letting SYS_KBHIT poll without consuming input.
func (c *Console) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in.Buffered()
}

func (c *Console) Accept(fdops.Userio_i) (fdops.Fdops_i, int, defs.Err_t) {
	return nil, 0, -defs.ENOTSUP
}
func (c *Console) Listen(int) defs.Err_t          { return -defs.ENOTSUP }
func (c *Console) Bind([]uint8) defs.Err_t        { return -defs.ENOTSUP }
func (c *Console) Shutdown(bool, bool) defs.Err_t { return -defs.ENOTSUP }
func (c *Console) Fullpath() (string, defs.Err_t) { return "", -defs.ENOTSUP }

/// AsError renders a kernel Err_t as a Go error for host-side test
/// assertions and the compat shim's boundary -- the kernel core itself
/// never does this conversion, per defs.Err_t's doc comment.
func AsError(e defs.Err_t) error {
	if e == 0 {
		return nil
	}
	return fmt.Errorf("%s", e.Error())
}
