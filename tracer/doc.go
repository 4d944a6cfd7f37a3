// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracer drives a tree of processes under ptrace, stopping
// each at syscall entry and exit so that path arguments can be
// rewritten between the guest and host views of the filesystem.
//
// The design is a single-threaded event loop: one OS-locked goroutine
// owns every ptrace call (the kernel grants tracer rights to the
// attaching thread only) and multiplexes all tracees through
// wait4(-1). Per-process state lives in a Tracee; the alternation
// between entry and exit stops is inferred from its State because the
// kernel does not mark which side a syscall stop is.
package tracer
