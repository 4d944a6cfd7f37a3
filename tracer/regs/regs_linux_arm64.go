// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && arm64

package regs

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// RedZone is zero on arm64: the AAPCS64 ABI reserves no stack below
// the stack pointer.
const RedZone = 0

// SyscallNumber returns the number of the syscall being entered or
// exited (w8 in the AArch64 syscall convention).
func (r *Regs) SyscallNumber() uint64 { return r.raw.Regs[8] }

// SetSyscallNumber rewrites the pending syscall number in the
// snapshot. On arm64 the kernel does not re-read w8 at syscall entry;
// SyncSyscallNumber must also be called for the rewrite to take
// effect.
func (r *Regs) SetSyscallNumber(n uint64) { r.raw.Regs[8] = n }

// Arg returns syscall argument n (x0–x5).
func (r *Regs) Arg(n int) uint64 { return r.raw.Regs[n] }

// SetArg rewrites syscall argument n.
func (r *Regs) SetArg(n int, v uint64) { r.raw.Regs[n] = v }

// ReturnValue returns the syscall result (x0 at syscall exit).
func (r *Regs) ReturnValue() uint64 { return r.raw.Regs[0] }

// SetReturnValue overrides the syscall result. Errors are encoded as
// -errno.
func (r *Regs) SetReturnValue(v uint64) { r.raw.Regs[0] = v }

// StackPointer returns the tracee's stack pointer.
func (r *Regs) StackPointer() uint64 { return r.raw.Sp }

// SetStackPointer moves the tracee's stack pointer (scratch
// allocation).
func (r *Regs) SetStackPointer(v uint64) { r.raw.Sp = v }

// InstructionPointer returns the tracee's program counter.
func (r *Regs) InstructionPointer() uint64 { return r.raw.Pc }

// SyncSyscallNumber makes a rewritten syscall number effective. The
// arm64 kernel reads the pending number from the NT_ARM_SYSTEM_CALL
// regset, not from w8, so cancelling or renumbering a syscall needs
// an explicit PTRACE_SETREGSET.
func SyncSyscallNumber(pid int, n uint64) error {
	num := int32(n)
	iov := unix.Iovec{
		Base: (*byte)(unsafe.Pointer(&num)),
		Len:  uint64(unsafe.Sizeof(num)),
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_PTRACE,
		unix.PTRACE_SETREGSET,
		uintptr(pid),
		uintptr(unix.NT_ARM_SYSTEM_CALL),
		uintptr(unsafe.Pointer(&iov)),
		0, 0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}
