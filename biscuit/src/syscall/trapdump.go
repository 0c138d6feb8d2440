package syscall

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

/// DumpTrap renders a RegFrame and the raw bytes at the trapping
/// instruction (if the caller has them) for diagnostics, the same role
/// elfload's decodeEntry plays for a fresh entry point: best-effort,
/// never a dispatch precondition. code may be nil when the caller has no
/// instruction bytes handy (e.g. a unit test driving Dispatch directly).
func DumpTrap(frame *RegFrame, code []byte) string {
	msg := fmt.Sprintf("trap: rax=%#x rdi=%#x rsi=%#x rdx=%#x", frame.Rax, frame.Rdi, frame.Rsi, frame.Rdx)
	if len(code) == 0 {
		return msg
	}
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return msg
	}
	return msg + " insn=" + inst.String()
}
