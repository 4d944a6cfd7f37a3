// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBinding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    string
		want    Binding
		wantErr bool
	}{
		{spec: "/host/data:/data", want: Binding{Host: "/host/data", Guest: "/data"}},
		{spec: "/host/data:/data:ro", want: Binding{Host: "/host/data", Guest: "/data", ReadOnly: true}},
		{spec: "/etc/hosts", want: Binding{Host: "/etc/hosts", Guest: "/etc/hosts"}},
		{spec: "/a:/b:rw", wantErr: true},
		{spec: "/a:/b:ro:extra", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBinding(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBinding(%q): expected error, got %+v", tt.spec, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBinding(%q): %v", tt.spec, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBinding(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rootfs: " + dir + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !config.InterpreterEmulation {
		t.Error("expected interpreter emulation on by default")
	}
	if config.MaxPathLength != DefaultMaxPathLength {
		t.Errorf("expected default max path length, got %d", config.MaxPathLength)
	}
	if config.MaxSymlinkDepth != DefaultMaxSymlinkDepth {
		t.Errorf("expected default symlink depth, got %d", config.MaxSymlinkDepth)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `rootfs: ` + dir + `
interpreter_emulation: false
max_symlink_depth: 8
bindings:
  - host: ` + dir + `
    guest: /data
    read_only: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.InterpreterEmulation {
		t.Error("expected interpreter emulation disabled")
	}
	if config.MaxSymlinkDepth != 8 {
		t.Errorf("expected max_symlink_depth 8, got %d", config.MaxSymlinkDepth)
	}
	if len(config.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(config.Bindings))
	}
	if !config.Bindings[0].ReadOnly {
		t.Error("expected read-only binding")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing rootfs", func(t *testing.T) {
		t.Parallel()
		config := Default()
		if err := config.Validate(); err == nil {
			t.Error("expected error for empty rootfs")
		}
	})

	t.Run("rootfs not a directory", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(dir, "plain")
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
		config := Default()
		config.Rootfs = file
		if err := config.Validate(); err == nil {
			t.Error("expected error for non-directory rootfs")
		}
	})

	t.Run("relative binding guest", func(t *testing.T) {
		t.Parallel()
		config := Default()
		config.Rootfs = dir
		config.Bindings = []Binding{{Host: dir, Guest: "data"}}
		if err := config.Validate(); err == nil {
			t.Error("expected error for relative guest path")
		}
	})

	t.Run("missing binding host", func(t *testing.T) {
		t.Parallel()
		config := Default()
		config.Rootfs = dir
		config.Bindings = []Binding{{Host: filepath.Join(dir, "nope"), Guest: "/data"}}
		if err := config.Validate(); err == nil {
			t.Error("expected error for nonexistent binding host")
		}
	})

	t.Run("normalizes paths", func(t *testing.T) {
		t.Parallel()
		config := Default()
		config.Rootfs = dir + "/."
		config.Bindings = []Binding{{Host: dir + "/", Guest: "/data/"}}
		config.WorkingDir = "/a/b/../b"
		if err := config.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if config.Rootfs != dir {
			t.Errorf("rootfs not cleaned: %q", config.Rootfs)
		}
		if config.Bindings[0].Guest != "/data" {
			t.Errorf("guest not cleaned: %q", config.Bindings[0].Guest)
		}
		if config.WorkingDir != "/a/b" {
			t.Errorf("working dir not cleaned: %q", config.WorkingDir)
		}
	})
}
