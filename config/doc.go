// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the sandbox configuration consumed by the
// tracing engine: the guest root filesystem, the ordered host↔guest
// binding list, and the engine feature flags.
//
// Configuration is loaded from a single YAML file specified explicitly
// by the caller (no fallbacks, no automatic discovery) and
// may be supplemented by bindings parsed from command-line flags
// ([ParseBinding]). Flag bindings append after file bindings, so a
// later declaration of equal specificity overrides an earlier one
// during path resolution.
//
// A Config is validated once ([Config.Validate]) before any process is
// traced and is immutable afterwards; every tracee shares the same
// read-only value.
package config
