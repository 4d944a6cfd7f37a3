// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syscalls

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestLookupClassification(t *testing.T) {
	t.Parallel()

	e := Lookup(unix.SYS_OPENAT)
	if e == nil {
		t.Fatal("openat not classified")
	}
	if e.Kind != KindInputPath {
		t.Errorf("openat kind = %v, want input path", e.Kind)
	}
	if len(e.PathArgs) != 1 || e.PathArgs[0] != 1 {
		t.Errorf("openat path args = %v, want [1]", e.PathArgs)
	}
	if e.OpenFlagsArg != 2 {
		t.Errorf("openat flags arg = %d, want 2", e.OpenFlagsArg)
	}

	e = Lookup(unix.SYS_GETCWD)
	if e == nil || e.Kind != KindOutputPath {
		t.Errorf("getcwd entry = %+v, want output path", e)
	}

	e = Lookup(unix.SYS_EXECVE)
	if e == nil || e.Kind != KindExec {
		t.Errorf("execve entry = %+v, want exec", e)
	}

	e = Lookup(unix.SYS_CHDIR)
	if e == nil || !e.UpdatesCwd {
		t.Errorf("chdir entry = %+v, want UpdatesCwd", e)
	}

	e = Lookup(unix.SYS_UNLINKAT)
	if e == nil || !e.Writes {
		t.Errorf("unlinkat entry = %+v, want Writes", e)
	}

	// symlinkat's first argument is link content, never translated.
	e = Lookup(unix.SYS_SYMLINKAT)
	if e == nil {
		t.Fatal("symlinkat not classified")
	}
	if len(e.PathArgs) != 1 || e.PathArgs[0] != 2 {
		t.Errorf("symlinkat path args = %v, want [2]", e.PathArgs)
	}

	// linkat carries two independent dirfd/path pairs, and its flags
	// argument can flip symlink handling at runtime.
	e = Lookup(unix.SYS_LINKAT)
	if e == nil {
		t.Fatal("linkat not classified")
	}
	if len(e.PathArgs) != 2 || len(e.DirfdArgs) != 2 {
		t.Errorf("linkat args = %v/%v, want two pairs", e.PathArgs, e.DirfdArgs)
	}
	if e.AtFlagsArg != 4 {
		t.Errorf("linkat AT flags arg = %d, want 4", e.AtFlagsArg)
	}

	// openat2 hides its open flags in a tracee-side struct; the entry
	// must point at it so write intent stays enforceable on read-only
	// bindings.
	e = Lookup(unix.SYS_OPENAT2)
	if e == nil {
		t.Fatal("openat2 not classified")
	}
	if e.Writes || e.OpenFlagsArg != 0 {
		t.Errorf("openat2 entry = %+v, want runtime write intent", e)
	}
	if e.OpenHowArg != 2 {
		t.Errorf("openat2 open_how arg = %d, want 2", e.OpenHowArg)
	}

	if Lookup(unix.SYS_GETPID) != nil {
		t.Error("getpid classified; expected passthrough by absence")
	}
}

func TestWriteIntent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		flags uint64
		want  bool
	}{
		{"read only", unix.O_RDONLY, false},
		{"write only", unix.O_WRONLY, true},
		{"read write", unix.O_RDWR, true},
		{"read with create", unix.O_RDONLY | unix.O_CREAT, true},
		{"read with truncate", unix.O_RDONLY | unix.O_TRUNC, true},
		{"read with cloexec", unix.O_RDONLY | unix.O_CLOEXEC, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := writeIntent(tt.flags); got != tt.want {
				t.Errorf("writeIntent(%#x) = %v, want %v", tt.flags, got, tt.want)
			}
		})
	}
}

func TestDenyErrno(t *testing.T) {
	t.Parallel()
	if got := DenyErrno(unix.ENOENT); got != unix.ENOENT {
		t.Errorf("DenyErrno(ENOENT) = %v", got)
	}
}

func TestErrnoReturn(t *testing.T) {
	t.Parallel()
	if got := ErrnoReturn(unix.ENOENT); int64(got) != -2 {
		t.Errorf("ErrnoReturn(ENOENT) = %d, want -2", int64(got))
	}
}
