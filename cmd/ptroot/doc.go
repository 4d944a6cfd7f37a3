// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ptroot runs commands inside an unprivileged chroot-like filesystem
// view, built on ptrace instead of privileges: every syscall that
// names a path is stopped, its arguments translated from the guest
// view to the real host locations, and the result mapped back.
//
// Usage:
//
//	ptroot run [flags] -- <command> [args...]
//	ptroot validate [flags] [-- <command>]
//	ptroot version
package main
