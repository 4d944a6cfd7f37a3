// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package preflight checks that the host can actually run a traced
// guest before the first process starts: ptrace permissions, the
// guest root and bindings, and the command itself. Checks accumulate
// into a printable report instead of stopping at the first problem,
// so a misconfigured setup is diagnosed in one pass.
package preflight
