// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package translate converts paths between the guest view (what the
// traced program sees) and the host view (where accesses actually
// land).
//
// The central type is [Translator], built once from a validated
// config. [Translator.Resolve] canonicalizes a guest path (absolute against
// the calling process's guest working directory, "." dropped, ".."
// clamped at the guest root, symlink targets discovered on the host
// side spliced in) and then rewrites it
// through the binding table by longest guest-prefix match. The guest
// root itself is the implicit lowest-priority binding, so every guest
// path has a host mapping.
//
// Symlink resolution inspects the real host target at each
// intermediate step, because a link stored under one binding may point
// into another. Resolution depth is bounded; exceeding the bound
// returns [ErrSymlinkLoop]. Components that do not exist yet are kept
// as-is, so creating syscalls (open with O_CREAT, mkdir, rename
// targets) translate like any other.
//
// [Translator.ToGuest] is the reverse direction, used for syscall
// results such as getcwd buffers and readlink targets: longest
// host-prefix match against the binding hosts, falling back to
// stripping the guest root. A host path outside every binding is
// returned unchanged; there is nothing better to report to the guest.
package translate
