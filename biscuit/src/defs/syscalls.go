package defs

// Native syscall numbers (spec.md §6). Kept as a short const block (rather
// than a full copy of an architecture's unistd.h) since the rewrite only
// implements this subset.
const (
	SYS_EXIT    = 1
	SYS_READ    = 3
	SYS_WRITE   = 4
	SYS_OPEN    = 5
	SYS_CLOSE   = 6
	SYS_CHDIR   = 12
	SYS_GETPID  = 20
	SYS_MKDIR   = 39
	SYS_SOCKET  = 41
	SYS_ACCEPT  = 43
	SYS_SEND    = 44
	SYS_RECV    = 45
	SYS_BIND    = 49
	SYS_LISTEN  = 50
	SYS_CREATE  = 85
	SYS_READDIR = 89
	SYS_KBHIT   = 100
	SYS_CLEAR   = 101
	SYS_MEMINFO = 102
	SYS_GETCWD  = 183
)

// SyscallNames maps a syscall number to its mnemonic, consulted by
// biscuit/scripts/syscallaudit/syscallaudit.go and by diagnostic dumps.
var SyscallNames = map[int]string{
	SYS_EXIT: "exit", SYS_READ: "read", SYS_WRITE: "write", SYS_OPEN: "open",
	SYS_CLOSE: "close", SYS_CHDIR: "chdir", SYS_GETPID: "getpid",
	SYS_MKDIR: "mkdir", SYS_SOCKET: "socket", SYS_ACCEPT: "accept",
	SYS_SEND: "send", SYS_RECV: "recv", SYS_BIND: "bind", SYS_LISTEN: "listen",
	SYS_CREATE: "create", SYS_READDIR: "readdir", SYS_KBHIT: "kbhit",
	SYS_CLEAR: "clear", SYS_MEMINFO: "meminfo", SYS_GETCWD: "getcwd",
}

// open() flags (spec.md §3's fd table, §6's fd protocol).
const (
	O_RDONLY = 0x0
	O_WRONLY = 0x1
	O_RDWR   = 0x2
	O_CREAT  = 0x40
	O_TRUNC  = 0x200
	O_APPEND = 0x400
	O_DIRECTORY = 0x10000
)

const SEEK_SET = 0
const SEEK_CUR = 1
const SEEK_END = 2

// Trap vector used for syscalls (spec.md §6).
const TrapSyscall = 0x80
