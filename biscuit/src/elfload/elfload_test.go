package elfload

import (
	"bytes"
	"encoding/binary"
	"testing"

	"defs"
	"mem"
	"vm"
)

// buildELF assembles a minimal little-endian x86-64 ET_EXEC image: one
// ELF header, one PT_LOAD program header, and a short code segment. Good
// enough to exercise Load's happy path without a real linker.
func buildELF(class, data byte, machine, etype uint16, entry, vaddr uint64, code []byte) []byte {
	const ehsize = 64
	const phsize = 56

	var buf bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', class, data, 1}
	buf.Write(ident[:])
	binary.Write(&buf, binary.LittleEndian, etype)
	binary.Write(&buf, binary.LittleEndian, machine)
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // e_version
	binary.Write(&buf, binary.LittleEndian, entry)
	binary.Write(&buf, binary.LittleEndian, uint64(ehsize)) // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint64(0))      // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))      // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehsize))
	binary.Write(&buf, binary.LittleEndian, uint16(phsize))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shstrndx

	off := uint64(ehsize + phsize)
	binary.Write(&buf, binary.LittleEndian, uint32(1)) // p_type = PT_LOAD
	binary.Write(&buf, binary.LittleEndian, uint32(5)) // p_flags = R|X
	binary.Write(&buf, binary.LittleEndian, off)
	binary.Write(&buf, binary.LittleEndian, vaddr)
	binary.Write(&buf, binary.LittleEndian, vaddr)
	binary.Write(&buf, binary.LittleEndian, uint64(len(code)))
	binary.Write(&buf, binary.LittleEndian, uint64(len(code)))
	binary.Write(&buf, binary.LittleEndian, uint64(mem.PGSIZE))

	buf.Write(code)
	return buf.Bytes()
}

// a harmless single-byte instruction (NOP) so decodeEntry's diagnostic
// disassembly has something valid to chew on.
var nopCode = []byte{0x90, 0x90, 0x90, 0x90}

func validELF() []byte {
	return buildELF(2, 1, 62 /* EM_X86_64 */, 2 /* ET_EXEC */, 0x400000, 0x400000, nopCode)
}

func freshAS(t *testing.T) *vm.AS {
	t.Helper()
	mem.Phys_init(256, 0)
	as, err := vm.CreateDirectory()
	if err != 0 {
		t.Fatalf("CreateDirectory failed: %v", err)
	}
	return as
}

func TestLoadMapsEntrySegment(t *testing.T) {
	as := freshAS(t)
	img, err := Load(bytes.NewReader(validELF()), as)
	if err != 0 {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Entry != 0x400000 {
		t.Fatalf("Entry = %#x, want %#x", img.Entry, 0x400000)
	}
	if img.BreakAt < 0x400000+uintptr(len(nopCode)) {
		t.Fatalf("BreakAt = %#x, too low", img.BreakAt)
	}

	as.Lock_pmap()
	mapped := as.IsMapped(0x400000)
	as.Unlock_pmap()
	if !mapped {
		t.Fatal("Load should have mapped the entry page")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	as := freshAS(t)
	raw := validELF()
	raw[1] = 'X'
	if _, err := Load(bytes.NewReader(raw), as); err != -defs.EELFFILE && err != -defs.EELFMAGIC {
		t.Fatalf("Load with corrupt magic = %v, want EELFFILE or EELFMAGIC", err)
	}
}

func TestLoadRejectsWrongClass(t *testing.T) {
	as := freshAS(t)
	raw := buildELF(1 /* ELFCLASS32 */, 1, 62, 2, 0x400000, 0x400000, nopCode)
	if _, err := Load(bytes.NewReader(raw), as); err != -defs.EELFFILE && err != -defs.EELFCLASS {
		t.Fatalf("Load with 32-bit class = %v, want EELFFILE or EELFCLASS", err)
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	as := freshAS(t)
	raw := buildELF(2, 1, 3 /* EM_386 */, 2, 0x400000, 0x400000, nopCode)
	if _, err := Load(bytes.NewReader(raw), as); err != -defs.EELFMACHINE {
		t.Fatalf("Load with wrong machine = %v, want EELFMACHINE", err)
	}
}

func TestLoadRejectsWrongType(t *testing.T) {
	as := freshAS(t)
	raw := buildELF(2, 1, 62, 3 /* ET_DYN */, 0x400000, 0x400000, nopCode)
	if _, err := Load(bytes.NewReader(raw), as); err != -defs.EELFTYPE {
		t.Fatalf("Load with ET_DYN = %v, want EELFTYPE", err)
	}
}

func TestLoadZeroFillsBssBeyondFilesz(t *testing.T) {
	as := freshAS(t)
	raw := buildELF(2, 1, 62, 2, 0x400000, 0x400000, nopCode)
	// Bump p_memsz (the 8 bytes before the trailing p_align) past filesz so
	// the tail of the segment is .bss that must come back zeroed.
	const ehsize, phsize = 64, 56
	memszOff := ehsize + phsize - 16 // p_memsz precedes the trailing p_align
	binary.LittleEndian.PutUint64(raw[memszOff:], uint64(len(nopCode)+32))

	img, err := Load(bytes.NewReader(raw), as)
	if err != 0 {
		t.Fatalf("Load failed: %v", err)
	}
	if img.BreakAt < 0x400000+uintptr(len(nopCode)+32) {
		t.Fatalf("BreakAt = %#x, want to cover the grown memsz", img.BreakAt)
	}

	var dst [4]byte
	as.CopyFrom(dst[:], 0x400000+uintptr(len(nopCode)))
	for i, b := range dst {
		if b != 0 {
			t.Fatalf("bss byte %d = %d, want 0", i, b)
		}
	}
}
