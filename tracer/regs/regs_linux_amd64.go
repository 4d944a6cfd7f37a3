// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && amd64

package regs

// RedZone is the amount of stack below the stack pointer that the
// System V amd64 ABI reserves for the compiler; scratch allocations
// must not touch it.
const RedZone = 128

// argRegister returns a pointer to the register holding syscall
// argument n (0-based) in the amd64 syscall convention.
func (r *Regs) argRegister(n int) *uint64 {
	switch n {
	case 0:
		return &r.raw.Rdi
	case 1:
		return &r.raw.Rsi
	case 2:
		return &r.raw.Rdx
	case 3:
		return &r.raw.R10
	case 4:
		return &r.raw.R8
	case 5:
		return &r.raw.R9
	}
	panic("syscall argument index out of range")
}

// SyscallNumber returns the number of the syscall being entered or
// exited. orig_rax survives the kernel's clobbering of rax for the
// return value.
func (r *Regs) SyscallNumber() uint64 { return r.raw.Orig_rax }

// SetSyscallNumber rewrites the pending syscall number. Effective on
// amd64 through orig_rax alone; see SyncSyscallNumber.
func (r *Regs) SetSyscallNumber(n uint64) { r.raw.Orig_rax = n }

// Arg returns syscall argument n.
func (r *Regs) Arg(n int) uint64 { return *r.argRegister(n) }

// SetArg rewrites syscall argument n.
func (r *Regs) SetArg(n int, v uint64) { *r.argRegister(n) = v }

// ReturnValue returns the syscall result (valid at syscall exit).
func (r *Regs) ReturnValue() uint64 { return r.raw.Rax }

// SetReturnValue overrides the syscall result. Errors are encoded as
// -errno, e.g. uint64(-int64(unix.ELOOP)).
func (r *Regs) SetReturnValue(v uint64) { r.raw.Rax = v }

// StackPointer returns the tracee's stack pointer.
func (r *Regs) StackPointer() uint64 { return r.raw.Rsp }

// SetStackPointer moves the tracee's stack pointer (scratch
// allocation).
func (r *Regs) SetStackPointer(v uint64) { r.raw.Rsp = v }

// InstructionPointer returns the tracee's program counter.
func (r *Regs) InstructionPointer() uint64 { return r.raw.Rip }

// SyncSyscallNumber makes a rewritten syscall number effective in the
// kernel. On amd64 the number travels with the normal register set,
// so this is a no-op; the Store of orig_rax is sufficient.
func SyncSyscallNumber(pid int, n uint64) error {
	return nil
}
