// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/config"
	"github.com/bureau-foundation/ptroot/translate"
)

// Session owns one tree of traced processes: the initial command and
// everything it clones. All ptrace calls happen on the goroutine that
// calls Run; the kernel ties tracer rights to the attaching thread.
type Session struct {
	cfg        *config.Config
	translator *translate.Translator
	log        *slog.Logger

	tracees map[int]*Tracee
	rootPid int
}

// New builds a session for a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *Session {
	return &Session{
		cfg:        cfg,
		translator: translate.New(cfg),
		log:        logger,
		tracees:    make(map[int]*Tracee),
	}
}

// traceOptions are requested on every tracee. TRACESYSGOOD
// distinguishes syscall stops from real SIGTRAPs; the clone family
// options auto-attach descendants so nothing in the tree escapes
// translation.
func (s *Session) traceOptions() int {
	opts := unix.PTRACE_O_TRACESYSGOOD |
		unix.PTRACE_O_TRACECLONE |
		unix.PTRACE_O_TRACEFORK |
		unix.PTRACE_O_TRACEVFORK |
		unix.PTRACE_O_TRACEEXEC |
		unix.PTRACE_O_TRACEEXIT
	if s.cfg.KillOnExit {
		opts |= unix.PTRACE_O_EXITKILL
	}
	return opts
}

// Run starts the command under tracing and drives it to completion.
// The returned int is the exit code to propagate: the command's own
// status, or 128 plus the signal number when it died by signal.
func (s *Session) Run(command []string) (int, error) {
	if len(command) == 0 {
		return 0, fmt.Errorf("no command to run")
	}

	// Ptrace attachment is per-thread; every subsequent ptrace
	// call must come from this OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hostCwd, err := s.translator.ToHost(s.cfg.WorkingDir, "/")
	if err != nil {
		return 0, fmt.Errorf("initial working directory: %w", err)
	}

	// The command is spelled in the guest view; run its host-side
	// location. Everything it execs afterwards goes through the
	// syscall handlers instead.
	hostProgram := command[0]
	if strings.Contains(hostProgram, "/") {
		res, err := s.translator.Resolve(hostProgram, s.cfg.WorkingDir, true)
		if err != nil {
			return 0, fmt.Errorf("resolve command %s: %w", command[0], err)
		}
		hostProgram = res.HostPath
	}

	cmd := exec.Command(hostProgram, command[1:]...)
	cmd.Args = command
	cmd.Dir = hostCwd
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start command: %w", err)
	}
	s.rootPid = cmd.Process.Pid

	// The child stops with SIGTRAP at its execve; wait for that
	// stop, then arm the options before anything else runs.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(s.rootPid, &ws, unix.WALL, nil); err != nil {
		return 0, fmt.Errorf("wait for initial stop: %w", err)
	}
	if !ws.Stopped() {
		return 0, fmt.Errorf("command vanished before tracing began (status %#x)", ws)
	}
	if err := unix.PtraceSetOptions(s.rootPid, s.traceOptions()); err != nil {
		return 0, fmt.Errorf("set trace options: %w", err)
	}

	root := newTracee(s.rootPid, 0, s.cfg.WorkingDir)
	s.tracees[s.rootPid] = root
	s.log.Debug("tracing started", "pid", s.rootPid, "command", command[0], "cwd", s.cfg.WorkingDir)

	if err := unix.PtraceSyscall(s.rootPid, 0); err != nil {
		return 0, fmt.Errorf("resume root: %w", err)
	}
	return s.loop()
}

// adopt registers a clone/fork child under the session, inheriting
// the parent's guest working directory. Safe to call from both the
// parent's clone event and the child's own first stop; whichever
// arrives first wins.
func (s *Session) adopt(parent, child int) *Tracee {
	if t, ok := s.tracees[child]; ok {
		if t.Parent == 0 && parent != 0 {
			t.Parent = parent
			if p, ok := s.tracees[parent]; ok {
				t.Cwd = p.Cwd
			}
		}
		return t
	}
	cwd := s.cfg.WorkingDir
	if p, ok := s.tracees[parent]; ok {
		cwd = p.Cwd
	}
	t := newTracee(child, parent, cwd)
	t.attachPending = true
	s.tracees[child] = t
	s.log.Debug("tracee adopted", "pid", child, "parent", parent, "cwd", cwd)
	return t
}

// drop forgets a tracee, usually because it exited or vanished.
func (s *Session) drop(pid int) {
	delete(s.tracees, pid)
}
