// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/ptroot/tracer/regs"
)

func TestAllocateScratch(t *testing.T) {
	t.Parallel()

	var entry regs.Regs
	entry.SetStackPointer(100000)
	current := entry

	addr, err := AllocateScratch(&current, &entry, 7575)
	if err != nil {
		t.Fatalf("AllocateScratch: %v", err)
	}
	if addr >= 100000 {
		t.Errorf("scratch not below stack pointer: %#x", addr)
	}
	if addr != current.StackPointer() {
		t.Errorf("reservation address %#x != new stack pointer %#x", addr, current.StackPointer())
	}
	// First reservation skips the red zone and is word-aligned.
	want := uint64(100000) - ((7575 + regs.RedZone + 7) &^ uint64(7))
	if addr != want {
		t.Errorf("reservation = %#x, want %#x", addr, want)
	}
}

func TestAllocateScratchSecondReservationSkipsRedZone(t *testing.T) {
	t.Parallel()

	var entry regs.Regs
	entry.SetStackPointer(100000)
	current := entry

	first, err := AllocateScratch(&current, &entry, 64)
	if err != nil {
		t.Fatalf("first AllocateScratch: %v", err)
	}
	second, err := AllocateScratch(&current, &entry, 64)
	if err != nil {
		t.Fatalf("second AllocateScratch: %v", err)
	}
	if first-second != 64 {
		t.Errorf("second reservation re-applied the red zone: first=%#x second=%#x", first, second)
	}
}

func TestAllocateScratchOverflow(t *testing.T) {
	t.Parallel()

	var entry regs.Regs
	entry.SetStackPointer(120)
	current := entry

	_, err := AllocateScratch(&current, &entry, 7575)
	if !errors.Is(err, ErrScratchOverflow) {
		t.Errorf("expected ErrScratchOverflow, got %v", err)
	}
	if current.StackPointer() != 120 {
		t.Errorf("failed reservation moved the stack pointer to %#x", current.StackPointer())
	}
}
