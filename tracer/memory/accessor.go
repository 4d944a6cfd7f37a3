// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Both supported architectures (amd64, arm64) are little-endian.
var nativeEndian = binary.LittleEndian

// ErrTraceeGone reports that the traced process disappeared while an
// accessor operation was in flight. Fatal to that tracee's tracking,
// and to nothing else.
var ErrTraceeGone = errors.New("tracee vanished")

// ErrStringTooLong reports a NUL-terminated read that exceeded the
// caller's limit. The limit is an engine bound, not a truncation
// point.
var ErrStringTooLong = errors.New("string exceeds maximum length")

// ErrVectorTooLong reports a pointer vector with no NULL terminator
// within the caller's entry limit.
var ErrVectorTooLong = errors.New("pointer vector exceeds maximum length")

// ptrace calls interrupted by scheduling are retried this many times
// before the failure is treated as real.
const maxRetries = 3

const wordSize = 8

// Accessor performs memory operations on one stopped tracee.
type Accessor struct {
	pid int
}

// NewAccessor returns an Accessor for the given process. The process
// must be ptrace-stopped whenever a method is called.
func NewAccessor(pid int) *Accessor {
	return &Accessor{pid: pid}
}

// retryable wraps a ptrace data operation with the bounded retry
// policy: EINTR/EAGAIN are retried, ESRCH becomes ErrTraceeGone,
// anything else is returned as-is.
func (a *Accessor) retryable(op func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("pid %d: %w", a.pid, ErrTraceeGone)
		}
		if !errors.Is(err, unix.EINTR) && !errors.Is(err, unix.EAGAIN) {
			return err
		}
	}
	return fmt.Errorf("pid %d: retries exhausted: %w", a.pid, err)
}

// Peek reads len(buf) bytes from the tracee at addr.
func (a *Accessor) Peek(addr uintptr, buf []byte) error {
	return a.retryable(func() error {
		n, err := unix.PtracePeekData(a.pid, addr, buf)
		if err != nil {
			return err
		}
		if n != len(buf) {
			return fmt.Errorf("short read at %#x: %d of %d bytes", addr, n, len(buf))
		}
		return nil
	})
}

// Poke writes data into the tracee at addr.
func (a *Accessor) Poke(addr uintptr, data []byte) error {
	return a.retryable(func() error {
		n, err := unix.PtracePokeData(a.pid, addr, data)
		if err != nil {
			return err
		}
		if n != len(data) {
			return fmt.Errorf("short write at %#x: %d of %d bytes", addr, n, len(data))
		}
		return nil
	})
}

// PeekString reads a NUL-terminated string from the tracee at addr,
// up to max bytes. Reads proceed word by word so a string ending just
// before an unmapped page never faults past its terminator.
func (a *Accessor) PeekString(addr uintptr, max int) (string, error) {
	var out []byte
	word := make([]byte, wordSize)
	for len(out) < max {
		if err := a.Peek(addr+uintptr(len(out)), word); err != nil {
			return "", err
		}
		for _, b := range word {
			if b == 0 {
				return string(out), nil
			}
			out = append(out, b)
			if len(out) >= max {
				break
			}
		}
	}
	return "", fmt.Errorf("at %#x: %w", addr, ErrStringTooLong)
}

// PokeString writes s plus its NUL terminator into the tracee at
// addr.
func (a *Accessor) PokeString(addr uintptr, s string) error {
	data := make([]byte, len(s)+1)
	copy(data, s)
	return a.Poke(addr, data)
}

// PeekWord reads one pointer-sized word from the tracee.
func (a *Accessor) PeekWord(addr uintptr) (uint64, error) {
	buf := make([]byte, wordSize)
	if err := a.Peek(addr, buf); err != nil {
		return 0, err
	}
	return nativeEndian.Uint64(buf), nil
}

// PeekPointerVector reads a NULL-terminated vector of pointers (argv,
// envp) from the tracee, bounded by max entries.
func (a *Accessor) PeekPointerVector(addr uintptr, max int) ([]uint64, error) {
	var out []uint64
	for len(out) < max {
		word, err := a.PeekWord(addr + uintptr(len(out)*wordSize))
		if err != nil {
			return nil, err
		}
		if word == 0 {
			return out, nil
		}
		out = append(out, word)
	}
	return nil, fmt.Errorf("at %#x, %d entries: %w", addr, max, ErrVectorTooLong)
}
