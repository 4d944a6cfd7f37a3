// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package regs isolates the per-architecture syscall ABI: which
// register carries the syscall number, each of the six arguments, the
// return value, and the stack pointer. Handlers address registers by
// role through [Regs]; the role→register mapping lives in one
// build-tagged file per architecture so ABI differences never leak
// into handler logic.
//
// On amd64 the syscall number can be rewritten in place (orig_rax).
// On arm64 the kernel reads the number from the NT_ARM_SYSTEM_CALL
// regset, so cancelling a syscall additionally requires
// [SyncSyscallNumber] after the register write-back.
package regs
