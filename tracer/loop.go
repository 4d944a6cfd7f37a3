// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/lib/process"
	"github.com/bureau-foundation/ptroot/syscalls"
	"github.com/bureau-foundation/ptroot/tracer/regs"
)

// loop is the single-threaded wait/handle/resume cycle. It ends when
// the last tracee is reaped (ECHILD), returning the root's exit code.
func (s *Session) loop() (int, error) {
	exitCode := 0
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WALL, nil)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.ECHILD) {
				return exitCode, nil
			}
			return exitCode, fmt.Errorf("wait4: %w", err)
		}

		switch {
		case ws.Exited(), ws.Signaled():
			s.log.Debug("tracee gone", "pid", pid, "status", process.ExitCode(ws))
			if pid == s.rootPid {
				exitCode = process.ExitCode(ws)
				if s.cfg.KillOnExit {
					s.killRemaining()
				}
			}
			s.drop(pid)

		case ws.Stopped():
			s.handleStop(pid, ws)
		}
	}
}

// stopAction is the loop's decision for one reported stop.
type stopAction int

const (
	actionSyscallEnter stopAction = iota
	actionSyscallExit
	actionAdoptChild    // clone/fork/vfork event; the child pid rides in the event message
	actionMarkExec      // successful exec; scratch reservations die with the old image
	actionMarkExiting   // exit event; the final wait status still arrives
	actionSwallowSignal // the auto-attach SIGSTOP of a fresh clone child
	actionDeliverSignal
)

var stopActionNames = map[stopAction]string{
	actionSyscallEnter:  "syscall-enter",
	actionSyscallExit:   "syscall-exit",
	actionAdoptChild:    "adopt-child",
	actionMarkExec:      "mark-exec",
	actionMarkExiting:   "mark-exiting",
	actionSwallowSignal: "swallow-signal",
	actionDeliverSignal: "deliver-signal",
}

func (a stopAction) String() string {
	if n, ok := stopActionNames[a]; ok {
		return n
	}
	return "unknown"
}

// classifyStop maps a tracee's alternation state and one wait status
// to the action the loop must take. It performs no ptrace work, so
// stop sequences can be driven synthetically.
func classifyStop(state State, attachPending bool, ws unix.WaitStatus) (stopAction, unix.Signal) {
	sig := ws.StopSignal()

	// Syscall stop: SIGTRAP with bit 7 set, courtesy of TRACESYSGOOD.
	if sig == unix.SIGTRAP|0x80 {
		if state.expectsEntry() {
			return actionSyscallEnter, 0
		}
		return actionSyscallExit, 0
	}

	if sig == unix.SIGTRAP {
		switch ws.TrapCause() {
		case unix.PTRACE_EVENT_CLONE, unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK:
			return actionAdoptChild, 0
		case unix.PTRACE_EVENT_EXEC:
			return actionMarkExec, 0
		case unix.PTRACE_EVENT_EXIT:
			return actionMarkExiting, 0
		}
		// A genuine SIGTRAP (breakpoint); deliver it.
		return actionDeliverSignal, sig
	}

	if sig == unix.SIGSTOP && attachPending {
		return actionSwallowSignal, 0
	}

	return actionDeliverSignal, sig
}

// handleStop applies the classified action for one stop.
func (s *Session) handleStop(pid int, ws unix.WaitStatus) {
	t, known := s.tracees[pid]
	if !known {
		// A clone child can stop before its parent's clone event
		// is reported; adopt it provisionally, the event fixes
		// up parentage and working directory.
		t = s.adopt(0, pid)
	}

	action, sig := classifyStop(t.State, t.attachPending, ws)
	switch action {
	case actionSyscallEnter:
		s.handleSyscallEnter(t)
	case actionSyscallExit:
		s.handleSyscallExit(t)
	case actionAdoptChild:
		if child, err := unix.PtraceGetEventMsg(pid); err == nil {
			s.adopt(pid, int(child))
		}
		s.resume(t, 0)
	case actionMarkExec:
		// The exec succeeded: the image and its stack are fresh,
		// so the entry-side scratch reservation must not be
		// unwound at the coming exit stop.
		t.State = StateExec
		t.scratchUsed = false
		s.resume(t, 0)
	case actionMarkExiting:
		t.State = StateTerminated
		s.resume(t, 0)
	case actionSwallowSignal:
		t.attachPending = false
		s.resume(t, 0)
	case actionDeliverSignal:
		s.resume(t, int(sig))
	}
}

// handleSyscallEnter classifies the syscall, rewrites its path
// arguments into the host view, and cancels it when translation says
// the guest may not see the target.
func (s *Session) handleSyscallEnter(t *Tracee) {
	r, err := regs.Load(t.Pid)
	if err != nil {
		s.vanish(t, err)
		return
	}
	t.entryRegs = r
	t.resetSyscall()

	e := syscalls.Lookup(r.SyscallNumber())
	if e != nil {
		ctx := &syscalls.Context{
			Pid:        t.Pid,
			Regs:       &r,
			EntryRegs:  &t.entryRegs,
			Mem:        t.Mem,
			Translator: s.translator,
			Config:     s.cfg,
			Cwd:        t.Cwd,
			Log:        s.log,
		}
		res, err := syscalls.HandleEnter(ctx, e)
		if err != nil {
			s.vanish(t, err)
			return
		}
		t.entry = e
		t.pendingCwd = res.NewCwd

		if res.Deny != 0 {
			t.pendingDeny = res.Deny
			r.SetSyscallNumber(regs.CancelledSyscall)
			if err := regs.SyncSyscallNumber(t.Pid, regs.CancelledSyscall); err != nil {
				s.vanish(t, err)
				return
			}
			ctx.MarkDirty()
		}
		if r.StackPointer() != t.entryRegs.StackPointer() {
			t.scratchUsed = true
		}
		if ctx.Dirty() {
			if err := regs.Store(t.Pid, &r); err != nil {
				s.vanish(t, err)
				return
			}
		}
	}

	t.State = StateSysEnter
	s.resume(t, 0)
}

// handleSyscallExit finishes the cycle: plants the errno of a
// cancelled syscall, rewrites output buffers, commits a pending
// working-directory change, and unwinds the scratch reservation.
func (s *Session) handleSyscallExit(t *Tracee) {
	r, err := regs.Load(t.Pid)
	if err != nil {
		s.vanish(t, err)
		return
	}
	wasExec := t.State == StateExec

	ctx := &syscalls.Context{
		Pid:        t.Pid,
		Regs:       &r,
		EntryRegs:  &t.entryRegs,
		Mem:        t.Mem,
		Translator: s.translator,
		Config:     s.cfg,
		Cwd:        t.Cwd,
		Log:        s.log,
	}

	switch {
	case t.pendingDeny != 0:
		r.SetReturnValue(syscalls.ErrnoReturn(t.pendingDeny))
		ctx.MarkDirty()
	case t.entry != nil:
		res, err := syscalls.HandleExit(ctx, t.entry)
		if err != nil {
			s.vanish(t, err)
			return
		}
		if res.NewCwd != "" {
			t.Cwd = res.NewCwd
		}
	}

	if t.pendingCwd != "" && int64(r.ReturnValue()) == 0 {
		t.Cwd = t.pendingCwd
	}

	// A successful exec keeps its fresh stack; everything else gets
	// the entry-time stack pointer back.
	if t.scratchUsed && !wasExec {
		r.SetStackPointer(t.entryRegs.StackPointer())
		ctx.MarkDirty()
	}

	if ctx.Dirty() {
		if err := regs.Store(t.Pid, &r); err != nil {
			s.vanish(t, err)
			return
		}
	}

	t.resetSyscall()
	t.State = StateSysExit
	s.resume(t, 0)
}

// killRemaining sweeps every tracee other than the root after the
// root has gone. Their deaths are reaped by the loop like any other.
func (s *Session) killRemaining() {
	for pid := range s.tracees {
		if pid == s.rootPid {
			continue
		}
		s.log.Debug("killing orphaned tracee", "pid", pid)
		_ = unix.Kill(pid, unix.SIGKILL)
	}
}

// resume lets a stopped tracee continue to its next syscall stop,
// delivering sig when nonzero.
func (s *Session) resume(t *Tracee, sig int) {
	if err := unix.PtraceSyscall(t.Pid, sig); err != nil {
		s.vanish(t, err)
	}
}

// vanish handles a tracee that disappeared mid-operation, typically
// ESRCH from a kill. Its wait status still arrives and the loop reaps
// it there; here we just stop touching it.
func (s *Session) vanish(t *Tracee, err error) {
	if !errors.Is(err, unix.ESRCH) {
		s.log.Warn("tracee lost", "pid", t.Pid, "error", err)
	}
	t.State = StateTerminated
	t.resetSyscall()
}
