// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && arm64

package syscalls

import (
	"golang.org/x/sys/unix"
)

// arm64 has no legacy path syscalls; only fstatat carries a
// different name here.
func init() {
	register(unix.SYS_FSTATAT, Entry{Name: "fstatat", Kind: KindInputPath, PathArgs: []int{1}, DirfdArgs: []int{0}, AtFlagsArg: 3})
}
