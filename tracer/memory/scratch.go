// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"errors"

	"github.com/bureau-foundation/ptroot/tracer/regs"
)

// ErrScratchOverflow reports a scratch reservation that would wrap
// the tracee's stack pointer.
var ErrScratchOverflow = errors.New("scratch allocation would overflow tracee stack")

// AllocateScratch reserves size bytes of scratch space below the
// tracee's stack pointer and returns the address of the reservation.
//
// The first reservation within a syscall (current stack pointer still
// equal to the one captured at entry) also skips the architecture red
// zone. Only the register snapshot is modified; the caller stores the
// registers for the reservation to take effect, and restores the
// entry-time stack pointer at syscall exit. A successful exec is the
// exception: the fresh image has a fresh stack and the entry-time
// pointer must not be written over it.
func AllocateScratch(current *regs.Regs, entry *regs.Regs, size uint64) (uint64, error) {
	sp := current.StackPointer()

	needed := size
	if sp == entry.StackPointer() {
		needed += regs.RedZone
	}
	// Word-align the reservation; argv/envp vectors require it.
	needed = (needed + wordSize - 1) &^ uint64(wordSize-1)

	if sp <= needed {
		return 0, ErrScratchOverflow
	}
	sp -= needed
	current.SetStackPointer(sp)
	return sp, nil
}
