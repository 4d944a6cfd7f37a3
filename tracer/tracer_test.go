// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"io"
	"log/slog"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/config"
)

func quietSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Rootfs = t.TempDir()
	cfg.WorkingDir = "/"
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStateAlternation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state State
		entry bool
	}{
		{StateAllocated, true},
		{StateSysExit, true},
		{StateSysEnter, false},
		{StateExec, false},
	}
	for _, tt := range tests {
		if got := tt.state.expectsEntry(); got != tt.entry {
			t.Errorf("%v.expectsEntry() = %v, want %v", tt.state, got, tt.entry)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()
	for state, want := range map[State]string{
		StateAllocated:  "allocated",
		StateSysEnter:   "sysenter",
		StateSysExit:    "sysexit",
		StateExec:       "exec",
		StateTerminated: "terminated",
		State(99):       "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestAdoptInheritsWorkingDirectory(t *testing.T) {
	t.Parallel()
	s := quietSession(t)

	parent := newTracee(100, 0, "/srv/app")
	s.tracees[100] = parent

	child := s.adopt(100, 101)
	if child.Cwd != "/srv/app" {
		t.Errorf("child cwd = %q, want %q", child.Cwd, "/srv/app")
	}
	if child.Parent != 100 {
		t.Errorf("child parent = %d, want 100", child.Parent)
	}
	if !child.attachPending {
		t.Error("adopted child should have its attach stop pending")
	}
	if child.State != StateAllocated {
		t.Errorf("child state = %v, want allocated", child.State)
	}
}

func TestAdoptBeforeCloneEvent(t *testing.T) {
	t.Parallel()
	s := quietSession(t)

	parent := newTracee(200, 0, "/srv/app")
	s.tracees[200] = parent

	// The child's own stop can be reported before the parent's
	// clone event; the provisional adoption falls back to the
	// configured working directory, the event fixes it up.
	early := s.adopt(0, 201)
	if early.Cwd != "/" {
		t.Errorf("provisional cwd = %q, want %q", early.Cwd, "/")
	}

	fixed := s.adopt(200, 201)
	if fixed != early {
		t.Error("second adopt created a new tracee")
	}
	if fixed.Parent != 200 {
		t.Errorf("parent = %d, want 200", fixed.Parent)
	}
	if fixed.Cwd != "/srv/app" {
		t.Errorf("cwd after event = %q, want %q", fixed.Cwd, "/srv/app")
	}
}

func TestAdoptIdempotent(t *testing.T) {
	t.Parallel()
	s := quietSession(t)

	parent := newTracee(300, 0, "/work")
	s.tracees[300] = parent

	a := s.adopt(300, 301)
	a.Cwd = "/elsewhere" // the child chdir'd since
	b := s.adopt(300, 301)
	if a != b {
		t.Error("adopt replaced an existing tracee")
	}
	if b.Cwd != "/elsewhere" {
		t.Errorf("re-adopt clobbered cwd: %q", b.Cwd)
	}
}

func TestDrop(t *testing.T) {
	t.Parallel()
	s := quietSession(t)
	s.tracees[400] = newTracee(400, 0, "/")
	s.drop(400)
	if _, ok := s.tracees[400]; ok {
		t.Error("tracee still present after drop")
	}
}

// Synthetic wait statuses, encoded the way the kernel reports them:
// low byte 0x7f for a stop, the stop signal above it, the ptrace
// event (if any) above that.

func syscallStop() unix.WaitStatus {
	return unix.WaitStatus(0x7f | uint32(unix.SIGTRAP|0x80)<<8)
}

func eventStop(event int) unix.WaitStatus {
	return unix.WaitStatus(0x7f | uint32(unix.SIGTRAP)<<8 | uint32(event)<<16)
}

func signalStop(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(0x7f | uint32(sig)<<8)
}

func TestClassifyStop(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		state         State
		attachPending bool
		ws            unix.WaitStatus
		action        stopAction
		sig           unix.Signal
	}{
		{"fresh tracee enters", StateAllocated, false, syscallStop(), actionSyscallEnter, 0},
		{"after exit enters again", StateSysExit, false, syscallStop(), actionSyscallEnter, 0},
		{"after entry exits", StateSysEnter, false, syscallStop(), actionSyscallExit, 0},
		{"clone event", StateSysEnter, false, eventStop(unix.PTRACE_EVENT_CLONE), actionAdoptChild, 0},
		{"fork event", StateSysExit, false, eventStop(unix.PTRACE_EVENT_FORK), actionAdoptChild, 0},
		{"vfork event", StateSysExit, false, eventStop(unix.PTRACE_EVENT_VFORK), actionAdoptChild, 0},
		{"exec event", StateSysEnter, false, eventStop(unix.PTRACE_EVENT_EXEC), actionMarkExec, 0},
		{"exit event", StateSysExit, false, eventStop(unix.PTRACE_EVENT_EXIT), actionMarkExiting, 0},
		{"attach stop swallowed", StateAllocated, true, signalStop(unix.SIGSTOP), actionSwallowSignal, 0},
		{"real SIGSTOP delivered", StateSysExit, false, signalStop(unix.SIGSTOP), actionDeliverSignal, unix.SIGSTOP},
		{"breakpoint delivered", StateSysExit, false, signalStop(unix.SIGTRAP), actionDeliverSignal, unix.SIGTRAP},
		{"SIGTERM delivered", StateSysEnter, false, signalStop(unix.SIGTERM), actionDeliverSignal, unix.SIGTERM},
	}
	for _, tt := range tests {
		action, sig := classifyStop(tt.state, tt.attachPending, tt.ws)
		if action != tt.action || sig != tt.sig {
			t.Errorf("%s: classifyStop = (%v, %v), want (%v, %v)",
				tt.name, action, sig, tt.action, tt.sig)
		}
	}
}

// A successful exec arrives as an event between the syscall's entry
// and exit stops. The exec mark must route the following stop to the
// exit side, not a fresh entry.
func TestClassifyStopExecBetweenEnterAndExit(t *testing.T) {
	t.Parallel()
	tr := newTracee(500, 0, "/")

	if action, _ := classifyStop(tr.State, tr.attachPending, syscallStop()); action != actionSyscallEnter {
		t.Fatalf("first stop = %v, want %v", action, actionSyscallEnter)
	}
	tr.State = StateSysEnter

	if action, _ := classifyStop(tr.State, tr.attachPending, eventStop(unix.PTRACE_EVENT_EXEC)); action != actionMarkExec {
		t.Fatalf("exec event = %v, want %v", action, actionMarkExec)
	}
	tr.State = StateExec
	tr.scratchUsed = false

	if action, _ := classifyStop(tr.State, tr.attachPending, syscallStop()); action != actionSyscallExit {
		t.Errorf("post-exec stop = %v, want %v", action, actionSyscallExit)
	}
}

// A fork in the middle of the parent's syscall: the parent's clone
// event, the child's auto-attach SIGSTOP, then both proceed through
// their own alternation independently.
func TestClassifyStopForkAdoptionMidSyscall(t *testing.T) {
	t.Parallel()
	s := quietSession(t)

	parent := newTracee(600, 0, "/work")
	parent.State = StateSysEnter
	s.tracees[600] = parent

	if action, _ := classifyStop(parent.State, parent.attachPending, eventStop(unix.PTRACE_EVENT_FORK)); action != actionAdoptChild {
		t.Fatalf("fork event = %v, want %v", action, actionAdoptChild)
	}
	child := s.adopt(600, 601)

	if action, _ := classifyStop(child.State, child.attachPending, signalStop(unix.SIGSTOP)); action != actionSwallowSignal {
		t.Fatalf("child attach stop = %v, want %v", action, actionSwallowSignal)
	}
	child.attachPending = false

	if action, _ := classifyStop(child.State, child.attachPending, syscallStop()); action != actionSyscallEnter {
		t.Errorf("child first syscall stop = %v, want %v", action, actionSyscallEnter)
	}
	if action, _ := classifyStop(parent.State, parent.attachPending, syscallStop()); action != actionSyscallExit {
		t.Errorf("parent pending exit = %v, want %v", action, actionSyscallExit)
	}
}

// A denied syscall holds its errno across the entry stop; the next
// stop must classify as the exit where the errno is planted, and the
// per-syscall state must not leak into the following cycle.
func TestClassifyStopDenyThenErrno(t *testing.T) {
	t.Parallel()
	tr := newTracee(700, 0, "/")
	tr.State = StateSysEnter
	tr.pendingDeny = unix.EROFS

	if action, _ := classifyStop(tr.State, tr.attachPending, syscallStop()); action != actionSyscallExit {
		t.Fatalf("stop after deny = %v, want %v", action, actionSyscallExit)
	}

	tr.resetSyscall()
	tr.State = StateSysExit
	if tr.pendingDeny != 0 {
		t.Errorf("pendingDeny = %v after reset, want 0", tr.pendingDeny)
	}
	if action, _ := classifyStop(tr.State, tr.attachPending, syscallStop()); action != actionSyscallEnter {
		t.Errorf("next stop = %v, want %v", action, actionSyscallEnter)
	}
}

func TestStopActionString(t *testing.T) {
	t.Parallel()
	if got := actionMarkExec.String(); got != "mark-exec" {
		t.Errorf("actionMarkExec.String() = %q", got)
	}
	if got := stopAction(99).String(); got != "unknown" {
		t.Errorf("stopAction(99).String() = %q", got)
	}
}
