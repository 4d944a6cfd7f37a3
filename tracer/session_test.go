// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"log/slog"
	"os"
	"testing"

	"github.com/bureau-foundation/ptroot/config"
)

func TestRunRejectsEmptyCommand(t *testing.T) {
	t.Parallel()
	s := quietSession(t)
	if _, err := s.Run(nil); err == nil {
		t.Error("Run(nil) succeeded")
	}
}

// TestRunTrueUnderTrace exercises the full ptrace loop against the
// live kernel. It needs CAP_SYS_PTRACE or a permissive yama
// ptrace_scope, so it only runs when explicitly requested.
func TestRunTrueUnderTrace(t *testing.T) {
	if os.Getenv("PTROOT_KERNEL_TESTS") == "" {
		t.Skip("set PTROOT_KERNEL_TESTS=1 to run live ptrace tests")
	}
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}

	cfg := config.Default()
	cfg.Rootfs = "/"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	s := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	code, err := s.Run([]string{"/bin/true"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestRunFalseExitCode(t *testing.T) {
	if os.Getenv("PTROOT_KERNEL_TESTS") == "" {
		t.Skip("set PTROOT_KERNEL_TESTS=1 to run live ptrace tests")
	}
	if _, err := os.Stat("/bin/false"); err != nil {
		t.Skip("/bin/false not available")
	}

	cfg := config.Default()
	cfg.Rootfs = "/"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	s := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	code, err := s.Run([]string{"/bin/false"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
