// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && amd64

package syscalls

import (
	"golang.org/x/sys/unix"
)

// Legacy path syscalls that amd64 still exposes. arm64 dropped them
// in favor of the *at variants.
func init() {
	cwd := []int{-1}

	register(unix.SYS_OPEN, Entry{Name: "open", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, OpenFlagsArg: 1})
	register(unix.SYS_CREAT, Entry{Name: "creat", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_STAT, Entry{Name: "stat", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_LSTAT, Entry{Name: "lstat", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true})
	register(unix.SYS_NEWFSTATAT, Entry{Name: "newfstatat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, AtFlagsArg: 3})
	register(unix.SYS_ACCESS, Entry{Name: "access", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd})
	register(unix.SYS_MKDIR, Entry{Name: "mkdir", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_RMDIR, Entry{Name: "rmdir", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_UNLINK, Entry{Name: "unlink", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_LINK, Entry{Name: "link", Kind: KindInputPath, PathArgs: []int{0, 1}, DirfdArgs: []int{-1, -1}, NoFollow: true, Writes: true})
	register(unix.SYS_SYMLINK, Entry{Name: "symlink", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_RENAME, Entry{Name: "rename", Kind: KindInputPath, PathArgs: []int{0, 1}, DirfdArgs: []int{-1, -1}, NoFollow: true, Writes: true})
	register(unix.SYS_CHMOD, Entry{Name: "chmod", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_CHOWN, Entry{Name: "chown", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_LCHOWN, Entry{Name: "lchown", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_MKNOD, Entry{Name: "mknod", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true, Writes: true})
	register(unix.SYS_UTIME, Entry{Name: "utime", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_UTIMES, Entry{Name: "utimes", Kind: KindInputPath, PathArgs: []int{0}, DirfdArgs: cwd, Writes: true})
	register(unix.SYS_FUTIMESAT, Entry{Name: "futimesat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, Writes: true})

	register(unix.SYS_READLINK, Entry{Name: "readlink", Kind: KindOutputPath, PathArgs: []int{0}, DirfdArgs: cwd, NoFollow: true})
}
