// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package syscalls classifies syscall numbers and rewrites the
// path-bearing ones.
//
// The classifier is a static allow-list: a table from syscall number
// to an [Entry] naming which argument positions carry paths, where the
// companion dirfd sits for *at variants, whether the final component
// is dereferenced, and which handler shape applies. Syscalls outside
// the table pass through untranslated. Path-bearing syscalls that are
// not enumerated here simply run against the host view; extending the
// sandbox means extending the table, not teaching the engine to guess.
//
// Handler shapes:
//   - input-path: translate guest→host at syscall entry, repointing
//     the argument at a scratch copy of the host path.
//   - output-path: run unmodified, then rewrite the result buffer
//     host→guest at syscall exit (getcwd, readlink).
//   - exec: translate the executable and, for "#!" scripts, restage
//     the call as an invocation of the translated interpreter with
//     the script's guest path spliced into argv.
//
// Translation failures never abort the session: the syscall is
// cancelled (its number overwritten, see regs.CancelledSyscall) and
// the mapped errno is planted in the return register at exit, so the
// guest observes an ordinary failure.
package syscalls
