// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status unix.WaitStatus
		want   int
	}{
		{"clean exit", unix.WaitStatus(0x0000), 0},
		{"exit 1", unix.WaitStatus(0x0100), 1},
		{"exit 42", unix.WaitStatus(42 << 8), 42},
		{"killed by SIGKILL", unix.WaitStatus(unix.SIGKILL), 137},
		{"killed by SIGTERM", unix.WaitStatus(unix.SIGTERM), 143},
		{"stopped, not dead", unix.WaitStatus(0x057f), 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCode(tt.status); got != tt.want {
				t.Errorf("ExitCode(%#x) = %d, want %d", uint32(tt.status), got, tt.want)
			}
		})
	}
}
