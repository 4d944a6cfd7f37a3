// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package regs

import (
	"golang.org/x/sys/unix"
)

// CancelledSyscall is the number written over a syscall to prevent it
// from executing; the kernel rejects it with ENOSYS and the tracer
// substitutes the intended errno at exit.
const CancelledSyscall = ^uint64(0)

// Regs is a snapshot of a tracee's registers with role-based access.
// It is a plain value; mutations take effect in the tracee only after
// Store.
type Regs struct {
	raw unix.PtraceRegs
}

// Load reads the registers of a stopped tracee.
func Load(pid int) (Regs, error) {
	var r Regs
	if err := unix.PtraceGetRegs(pid, &r.raw); err != nil {
		return Regs{}, err
	}
	return r, nil
}

// Store writes the register snapshot back into a stopped tracee.
func Store(pid int, r *Regs) error {
	return unix.PtraceSetRegs(pid, &r.raw)
}
