// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory reads and writes a stopped tracee's address space.
//
// [Accessor] wraps PTRACE_PEEKDATA/POKEDATA with a bounded retry for
// transiently rejected calls; a tracee that has genuinely vanished
// surfaces as [ErrTraceeGone], which terminates tracking of that
// tracee only.
//
// Rewritten syscall arguments are never written over the tracee's own
// buffers. [AllocateScratch] reserves space below the tracee's stack
// pointer at syscall entry, honoring the architecture red zone, and
// the rewritten strings and vectors are staged there, with the
// argument registers repointed. The tracer puts the entry-time stack
// pointer back at syscall exit, so the reservation has no lasting
// effect. The technique follows proot: a tracer cannot grow the
// tracee's buffers, but it can always borrow stack.
package memory
