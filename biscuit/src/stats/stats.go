package stats

import "reflect"
import "time"
import "sync/atomic"
import "strconv"
import "strings"
import "unsafe"

// Stats/Timing gate the instrumentation on and off at compile time, as in
// the teacher; this rewrite turns both on since meminfo/ps-style
// introspection (spec.md §4.8, §6) is part of the specified surface rather
// than a build-tag extra.
const Stats = true
const Timing = true

var Nirqs [100]int
var Irqs int

/// Rdtsc returns a monotonically increasing counter standing in for the
/// teacher's runtime.Rdtsc() cycle counter, which requires a patched Go
/// runtime this rewrite does not carry.
func Rdtsc() uint64 {
	if Stats {
		return uint64(time.Now().UnixNano())
	} else {
		return 0
	}
}

/// Counter_t is a statistical counter.
type Counter_t int64

/// Cycles_t holds a cycle count.
type Cycles_t int64

/// Inc increments the counter.
func (c *Counter_t) Inc() {
	if Stats {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, 1)
	}
}

/// Add adds elapsed cycles to the counter.
func (c *Cycles_t) Add(m uint64) {
	if Timing {
		n := (*int64)(unsafe.Pointer(c))
		atomic.AddInt64(n, int64(Rdtsc()-m))
	}
}

/// Stats2String converts a struct of counters to a printable string.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
		if strings.HasSuffix(t, "Cycles_t") {
			n := v.Field(i).Interface().(Cycles_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}

	}
	return s + "\n"
}
