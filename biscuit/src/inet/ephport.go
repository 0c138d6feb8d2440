package inet

import "sync"

// ephports tracks the pool of ephemeral client ports available for an
// outbound connection to bind to, adapted directly from the teacher's
// msi.Msivecs_t allocate/free-set pattern -- there, a fixed pool of MSI
// interrupt vectors handed out to devices and returned on teardown; here,
// the same shape fits a fixed pool of ephemeral TCP ports handed out to
// an outbound socket and returned on Close. A real interrupt controller
// to hand MSI vectors to is out of scope for this rewrite, so the
// pattern moved to the one place in the domain stack that still needed
// it.
type ephports_t struct {
	sync.Mutex
	avail map[uint16]bool
}

var ephports = ephports_t{avail: initEphPorts()}

func initEphPorts() map[uint16]bool {
	m := make(map[uint16]bool, 256)
	for p := uint16(49152); p < 49152+256; p++ {
		m[p] = true
	}
	return m
}

func ephAlloc() uint16 {
	ephports.Lock()
	defer ephports.Unlock()
	for p := range ephports.avail {
		delete(ephports.avail, p)
		return p
	}
	panic("no more ephemeral ports")
}

func ephFree(p uint16) {
	ephports.Lock()
	defer ephports.Unlock()
	if ephports.avail[p] {
		panic("double free")
	}
	ephports.avail[p] = true
}
