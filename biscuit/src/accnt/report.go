package accnt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report renders the accounting record the way a userspace `ps`/`top` tool
// would: nanosecond counters converted to milliseconds and printed with
// locale-aware thousands separators, for the meminfo/ps-style console
// introspection syscalls (spec.md §4.8, §6).
func (a *Accnt_t) Report() string {
	a.Lock()
	userMs := a.Userns / 1e6
	sysMs := a.Sysns / 1e6
	a.Unlock()

	p := message.NewPrinter(language.English)
	return p.Sprintf("user %d ms, sys %d ms", userMs, sysMs)
}
