// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [WriteTree] and [Symlink] build filesystem fixtures for path
// translation tests without each test repeating MkdirAll/WriteFile
// error plumbing.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// names that must be distinguishable across parallel subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer.
//
//	name := testutil.UniqueID("rootfs") // "rootfs-1", "rootfs-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// WriteTree materializes files under root. Keys are slash-separated
// relative paths; parent directories are created as needed. A nil
// value creates an empty directory instead of a file.
//
//	testutil.WriteTree(t, rootfs, map[string][]byte{
//		"bin/sh":    []byte("#!/host/sh\n"),
//		"etc/empty": nil,
//	})
func WriteTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if content == nil {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", name, err)
		}
		if err := os.WriteFile(path, content, 0o755); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

// Symlink creates a symbolic link at root/name pointing at target,
// creating parent directories as needed. The target is stored
// verbatim, so relative and guest-absolute targets both work.
func Symlink(t *testing.T, root, name, target string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", name, err)
	}
	if err := os.Symlink(target, path); err != nil {
		t.Fatalf("linking %s -> %s: %v", name, target, err)
	}
}
