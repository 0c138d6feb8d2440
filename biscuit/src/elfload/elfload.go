// Package elfload maps an ELF executable into a fresh address space. It is
// built on the standard debug/elf package exactly as the teacher's own
// biscuit/scripts/chentry.go does for header validation (magic/class/
// machine checks), generalized from "patch the entry point of a file on
// disk" to "map every PT_LOAD segment into a target address space".
package elfload

import (
	"debug/elf"
	"fmt"
	"io"

	"golang.org/x/arch/x86/x86asm"

	"defs"
	"mem"
	"vm"
)

/// Image describes a successfully loaded executable: its entry point and
/// the top of its initial break, from which process.CreateUserProcess lays
/// out the heap.
type Image struct {
	Entry   uintptr
	BreakAt uintptr
}

func fail(e defs.Err_t) (Image, defs.Err_t) {
	return Image{}, e
}

/// Load validates file as a 64-bit little-endian x86 executable and maps
/// each PT_LOAD segment into target at its specified virtual address,
/// zero-filling any gap between a segment's file size and its memory size
/// (.bss). Segment permissions are honored: PF_W maps PTE_W, every user
/// mapping carries PTE_U.
func Load(file io.ReaderAt, target *vm.AS) (Image, defs.Err_t) {
	ef, err := elf.NewFile(file)
	if err != nil {
		return fail(-defs.EELFFILE)
	}
	defer ef.Close()

	if ef.Ident[0] != 0x7f || string(ef.Ident[1:4]) != "ELF" {
		return fail(-defs.EELFMAGIC)
	}
	if ef.Ident[elf.EI_CLASS] != byte(elf.ELFCLASS64) ||
		ef.Ident[elf.EI_DATA] != byte(elf.ELFDATA2LSB) {
		return fail(-defs.EELFCLASS)
	}
	if ef.Machine != elf.EM_X86_64 {
		return fail(-defs.EELFMACHINE)
	}
	if ef.Type != elf.ET_EXEC {
		return fail(-defs.EELFTYPE)
	}

	var brk uintptr
	target.Lock_pmap()
	defer target.Unlock_pmap()
	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if err := mapSegment(target, prog); err != 0 {
			return fail(err)
		}
		top := uintptr(prog.Vaddr + prog.Memsz)
		if top > brk {
			brk = top
		}
	}

	if dis := decodeEntry(file, ef, uintptr(ef.Entry)); dis != "" {
		fmt.Printf("elfload: entry instruction: %s\n", dis)
	}

	return Image{Entry: uintptr(ef.Entry), BreakAt: roundup(brk)}, 0
}

func roundup(v uintptr) uintptr {
	const pg = uintptr(mem.PGSIZE)
	return (v + pg - 1) &^ (pg - 1)
}

func mapSegment(target *vm.AS, prog *elf.Prog) defs.Err_t {
	data := make([]byte, prog.Memsz)
	n, err := prog.ReadAt(data[:prog.Filesz], 0)
	if err != nil && err != io.EOF {
		return -defs.EELFSEGMENT
	}
	if uint64(n) != prog.Filesz {
		return -defs.EELFSEGMENT
	}

	perms := mem.PTE_U
	if prog.Flags&elf.PF_W != 0 {
		perms |= mem.PTE_W
	}

	start := uintptr(prog.Vaddr) &^ uintptr(mem.PGOFFSET)
	end := roundup(uintptr(prog.Vaddr + prog.Memsz))
	off := 0
	for va := start; va < end; va += uintptr(mem.PGSIZE) {
		pg, p_pg, ok := mem.Physmem.Refpg_new()
		if !ok {
			return -defs.EELFMEMORY
		}
		bpg := mem.Pg2bytes(pg)
		pgoff := 0
		if va < uintptr(prog.Vaddr) {
			pgoff = int(uintptr(prog.Vaddr) - va)
		}
		src := data[off:]
		n := copy(bpg[pgoff:], src)
		off += n
		if e := target.MapPage(va, p_pg, perms); e != 0 {
			mem.Physmem.Refdown(p_pg)
			return e
		}
		mem.Physmem.Refdown(p_pg)
	}
	return 0
}

// decodeEntry disassembles the first instruction at the entry point for
// diagnostics (domain-stack wiring, not a correctness gate -- a segment
// that fails to decode is logged, not rejected, since a freshly-mapped
// zero page is valid until written).
func decodeEntry(file io.ReaderAt, ef *elf.File, entry uintptr) string {
	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if uint64(entry) < prog.Vaddr || uint64(entry) >= prog.Vaddr+prog.Filesz {
			continue
		}
		buf := make([]byte, 16)
		n, _ := prog.ReadAt(buf, int64(uint64(entry)-prog.Vaddr))
		if n == 0 {
			return ""
		}
		inst, err := x86asm.Decode(buf[:n], 64)
		if err != nil {
			return ""
		}
		return inst.String()
	}
	return ""
}
