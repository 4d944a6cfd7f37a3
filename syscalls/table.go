// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syscalls

import (
	"golang.org/x/sys/unix"
)

// Kind tags the handler shape for a classified syscall.
type Kind int

const (
	// KindPassthrough syscalls run untouched.
	KindPassthrough Kind = iota
	// KindInputPath syscalls have path arguments translated
	// guest→host at entry.
	KindInputPath
	// KindOutputPath syscalls have a result buffer translated
	// host→guest at exit.
	KindOutputPath
	// KindExec is the execve family with interpreter emulation.
	KindExec
)

// Entry describes how one syscall carries paths. Argument indices are
// 0-based syscall argument positions. The zero value for the *Arg
// fields means "no such argument": no path argument sits at position
// 0 behind another, so 0 is never a real value for them.
type Entry struct {
	Name string
	Kind Kind

	// PathArgs are the argument positions holding path pointers.
	PathArgs []int

	// DirfdArgs is parallel to PathArgs: the position of the dirfd
	// anchoring a relative path, or -1 when the path is anchored at
	// the process working directory.
	DirfdArgs []int

	// NoFollow keeps the final component undereferenced (the
	// l-variants and the unlink/rename family).
	NoFollow bool

	// Writes marks unconditional write intent, enforced against
	// read-only bindings.
	Writes bool

	// OpenFlagsArg is the position of open(2)-style flags deciding
	// write intent at runtime. 0 = none.
	OpenFlagsArg int

	// OpenHowArg is the position of a struct open_how pointer
	// (openat2); its leading u64 carries the open flags and is
	// peeked from the tracee to decide write intent. 0 = none.
	OpenHowArg int

	// AtFlagsArg is the position of AT_* flags; AT_SYMLINK_NOFOLLOW
	// and AT_SYMLINK_FOLLOW there override NoFollow at runtime.
	// 0 = none.
	AtFlagsArg int

	// UpdatesCwd commits a new guest working directory when the
	// syscall succeeds (chdir, fchdir).
	UpdatesCwd bool
}

var table = map[uint64]*Entry{}

func register(num uint64, e Entry) {
	table[num] = &e
}

// Lookup returns the classification for a syscall number, or nil for
// a passthrough.
func Lookup(num uint64) *Entry {
	return table[num]
}

// Syscalls present on every supported architecture. Legacy non-at
// variants (open, stat, readlink, ...) exist only on amd64 and are
// registered in the per-architecture file.
func init() {
	cwd := []int{-1}

	register(unix.SYS_OPENAT, Entry{Name: "openat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, OpenFlagsArg: 2})
	register(unix.SYS_OPENAT2, Entry{Name: "openat2", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, OpenHowArg: 2})
	register(unix.SYS_STATX, Entry{Name: "statx", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, AtFlagsArg: 2})
	register(unix.SYS_FACCESSAT, Entry{Name: "faccessat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}})
	register(unix.SYS_FACCESSAT2, Entry{Name: "faccessat2", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, AtFlagsArg: 3})
	register(unix.SYS_FCHMODAT, Entry{Name: "fchmodat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, Writes: true})
	register(unix.SYS_FCHOWNAT, Entry{Name: "fchownat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, Writes: true, AtFlagsArg: 4})
	register(unix.SYS_MKDIRAT, Entry{Name: "mkdirat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, NoFollow: true, Writes: true})
	register(unix.SYS_MKNODAT, Entry{Name: "mknodat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, NoFollow: true, Writes: true})
	register(unix.SYS_UNLINKAT, Entry{Name: "unlinkat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, NoFollow: true, Writes: true})
	register(unix.SYS_LINKAT, Entry{Name: "linkat", Kind: KindInputPath, PathArgs: []int{1, 3}, DirfdArgs: []int{0, 2}, NoFollow: true, Writes: true, AtFlagsArg: 4})
	register(unix.SYS_RENAMEAT, Entry{Name: "renameat", Kind: KindInputPath, PathArgs: []int{1, 3}, DirfdArgs: []int{0, 2}, NoFollow: true, Writes: true})
	register(unix.SYS_RENAMEAT2, Entry{Name: "renameat2", Kind: KindInputPath, PathArgs: []int{1, 3}, DirfdArgs: []int{0, 2}, NoFollow: true, Writes: true})
	// symlinkat's first argument is the link content, stored
	// verbatim; only the link location is translated.
	register(unix.SYS_SYMLINKAT, Entry{Name: "symlinkat", Kind: KindInputPath, PathArgs: []int{2}, DirfdArgs: []int{1}, NoFollow: true, Writes: true})
	register(unix.SYS_UTIMENSAT, Entry{Name: "utimensat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, Writes: true, AtFlagsArg: 3})

	register(unix.SYS_TRUNCATE, Entry{Name: "truncate", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_STATFS, Entry{Name: "statfs", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_CHDIR, Entry{Name: "chdir", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, UpdatesCwd: true})
	register(unix.SYS_FCHDIR, Entry{Name: "fchdir", Kind: KindInputPath, UpdatesCwd: true})
	// chroot inside the sandbox clamps to the guest root; the path
	// is translated like any other and the kernel-side call will
	// fail unprivileged, which matches a guest's expectations.
	register(unix.SYS_CHROOT, Entry{Name: "chroot", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})

	register(unix.SYS_SETXATTR, Entry{Name: "setxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_LSETXATTR, Entry{Name: "lsetxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_GETXATTR, Entry{Name: "getxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_LGETXATTR, Entry{Name: "lgetxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true})
	register(unix.SYS_LISTXATTR, Entry{Name: "listxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_LLISTXATTR, Entry{Name: "llistxattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true})
	register(unix.SYS_REMOVEXATTR, Entry{Name: "removexattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_LREMOVEXATTR, Entry{Name: "lremovexattr", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})

	register(unix.SYS_GETCWD, Entry{Name: "getcwd", Kind: KindOutputPath})
	register(unix.SYS_READLINKAT, Entry{Name: "readlinkat", Kind: KindOutputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, NoFollow: true})

	register(unix.SYS_EXECVE, Entry{Name: "execve", Kind: KindExec, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_EXECVEAT, Entry{Name: "execveat", Kind: KindExec, PathArgs: []int{1}, DirfdArgs: []int{0}, AtFlagsArg: 4})
}
