// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/syscalls"
	"github.com/bureau-foundation/ptroot/tracer/memory"
	"github.com/bureau-foundation/ptroot/tracer/regs"
)

// State tracks where a tracee stands in the syscall stop cycle.
// Syscall stops carry no entry/exit marker, so the tracer infers the
// side from the previous one.
type State int

const (
	// StateAllocated: adopted, no syscall stop handled yet; the
	// next syscall stop is an entry.
	StateAllocated State = iota

	// StateSysEnter: an entry stop was handled; the next syscall
	// stop is the matching exit.
	StateSysEnter

	// StateSysExit: an exit stop was handled; the next syscall
	// stop is a fresh entry.
	StateSysExit

	// StateExec: a PTRACE_EVENT_EXEC stop arrived between an
	// execve entry and its exit; the next syscall stop is that
	// exit, observed in the fresh program image.
	StateExec

	// StateTerminated: the tracee is gone; kept only until the
	// loop reaps its wait status.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAllocated:
		return "allocated"
	case StateSysEnter:
		return "sysenter"
	case StateSysExit:
		return "sysexit"
	case StateExec:
		return "exec"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// expectsEntry reports whether the next syscall stop for this state
// is an entry stop.
func (s State) expectsEntry() bool {
	return s == StateAllocated || s == StateSysExit
}

// Tracee is the per-process bookkeeping the tracer keeps for every
// process under its control.
type Tracee struct {
	Pid    int
	Parent int // pid of the tracee that created this one; 0 for the root
	State  State

	// Cwd is the guest-side working directory, maintained by the
	// tracer because the kernel only knows the host-side one.
	Cwd string

	Mem *memory.Accessor

	// entryRegs is the register snapshot from the current syscall's
	// entry stop; exit handling reads original argument values from
	// it and restores the stack pointer against it.
	entryRegs regs.Regs

	// entry is the classification of the in-flight syscall, nil
	// when it is a passthrough.
	entry *syscalls.Entry

	// pendingDeny is the errno to plant at exit after a cancelled
	// syscall; zero when the syscall was allowed through.
	pendingDeny unix.Errno

	// pendingCwd is the guest directory to commit if the in-flight
	// chdir succeeds.
	pendingCwd string

	// scratchUsed notes that the entry handler moved the stack
	// pointer; the exit handler must put it back.
	scratchUsed bool

	// attachPending suppresses the SIGSTOP a freshly auto-attached
	// clone child reports before it runs.
	attachPending bool
}

func newTracee(pid, parent int, cwd string) *Tracee {
	return &Tracee{
		Pid:    pid,
		Parent: parent,
		State:  StateAllocated,
		Cwd:    cwd,
		Mem:    memory.NewAccessor(pid),
	}
}

// resetSyscall clears the per-syscall fields at the end of an
// enter/exit cycle.
func (t *Tracee) resetSyscall() {
	t.entry = nil
	t.pendingDeny = 0
	t.pendingCwd = ""
	t.scratchUsed = false
}
