// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package preflight

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bureau-foundation/ptroot/config"
	"github.com/bureau-foundation/ptroot/translate"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator performs pre-flight validation before tracing starts.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

// pass records a successful validation.
func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
	})
}

// warn records a warning (not a failure).
func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
		Warning: true,
	})
}

// fail records a validation failure.
func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  false,
		Message: message,
	})
	v.errors++
}

// ValidateAll runs all checks for a tracing configuration and the
// command it is about to run.
func (v *Validator) ValidateAll(cfg *config.Config, command []string) {
	v.ValidatePtrace()
	v.ValidateRootfs(cfg)
	v.ValidateBindings(cfg)
	v.ValidateWorkingDirectory(cfg)
	v.ValidateProc(cfg)
	v.ValidateCommand(cfg, command)
}

// ValidatePtrace checks that the yama security module will let an
// unprivileged process trace its own children.
func (v *Validator) ValidatePtrace() {
	data, err := os.ReadFile("/proc/sys/kernel/yama/ptrace_scope")
	if err != nil {
		if os.IsNotExist(err) {
			v.pass("ptrace", "no yama restriction")
			return
		}
		v.warn("ptrace", fmt.Sprintf("cannot check yama ptrace_scope: %v", err))
		return
	}

	value := strings.TrimSpace(string(data))
	switch value {
	case "0", "1":
		// Scope 1 restricts to descendants, which is exactly what
		// the tracer does.
		v.pass("ptrace", fmt.Sprintf("yama ptrace_scope=%s allows tracing children", value))
	case "2":
		v.fail("ptrace", "yama ptrace_scope=2 requires CAP_SYS_PTRACE")
	case "3":
		v.fail("ptrace", "yama ptrace_scope=3 disables ptrace entirely")
	default:
		v.warn("ptrace", fmt.Sprintf("unrecognized yama ptrace_scope: %s", value))
	}
}

// ValidateRootfs checks that the guest root exists and is a directory.
func (v *Validator) ValidateRootfs(cfg *config.Config) {
	if cfg.Rootfs == "" {
		v.fail("rootfs", "guest root path is required")
		return
	}

	info, err := os.Stat(cfg.Rootfs)
	if err != nil {
		if os.IsNotExist(err) {
			v.fail("rootfs", fmt.Sprintf("does not exist: %s", cfg.Rootfs))
		} else {
			v.fail("rootfs", fmt.Sprintf("cannot access: %v", err))
		}
		return
	}

	if !info.IsDir() {
		v.fail("rootfs", fmt.Sprintf("not a directory: %s", cfg.Rootfs))
		return
	}

	v.pass("rootfs", fmt.Sprintf("exists: %s", cfg.Rootfs))
}

// ValidateBindings checks that every binding's host side exists.
func (v *Validator) ValidateBindings(cfg *config.Config) {
	if len(cfg.Bindings) == 0 {
		v.pass("bindings", "none configured")
		return
	}

	for _, b := range cfg.Bindings {
		if _, err := os.Stat(b.Host); err != nil {
			if os.IsNotExist(err) {
				v.fail("bindings", fmt.Sprintf("host path not found: %s -> %s", b.Host, b.Guest))
			} else {
				v.fail("bindings", fmt.Sprintf("cannot access %s: %v", b.Host, err))
			}
			continue
		}
		v.pass("bindings", fmt.Sprintf("%s -> %s", b.Host, b.Guest))
	}
}

// ValidateWorkingDirectory checks that the initial guest working
// directory translates to an existing host directory.
func (v *Validator) ValidateWorkingDirectory(cfg *config.Config) {
	tr := translate.New(cfg)
	hostDir, err := tr.ToHost(cfg.WorkingDir, "/")
	if err != nil {
		v.fail("working_directory", fmt.Sprintf("cannot translate %s: %v", cfg.WorkingDir, err))
		return
	}

	info, err := os.Stat(hostDir)
	if err != nil {
		if os.IsNotExist(err) {
			v.fail("working_directory", fmt.Sprintf("%s does not exist in the guest view (%s)", cfg.WorkingDir, hostDir))
		} else {
			v.fail("working_directory", fmt.Sprintf("cannot access: %v", err))
		}
		return
	}

	if !info.IsDir() {
		v.fail("working_directory", fmt.Sprintf("not a directory: %s", cfg.WorkingDir))
		return
	}

	v.pass("working_directory", fmt.Sprintf("%s -> %s", cfg.WorkingDir, hostDir))
}

// ValidateProc checks that /proc is mounted; the tracer reads tracee
// fd and cwd links from it.
func (v *Validator) ValidateProc(cfg *config.Config) {
	if _, err := os.Stat("/proc/self/fd"); err != nil {
		v.fail("proc", "/proc is not mounted; fd-relative path translation needs it")
		return
	}

	bound := false
	for _, b := range cfg.Bindings {
		if b.Guest == "/proc" || strings.HasPrefix(b.Guest, "/proc/") {
			bound = true
			break
		}
	}
	if !bound {
		if _, err := os.Stat(cfg.Rootfs + "/proc"); err != nil {
			v.warn("proc", "guest has no /proc and none is bound; many programs expect one (bind it with -b /proc)")
			return
		}
	}
	v.pass("proc", "available")
}

// ValidateCommand checks that the command resolves inside the guest
// view to something executable.
func (v *Validator) ValidateCommand(cfg *config.Config, command []string) {
	if len(command) == 0 {
		v.fail("command", "no command given")
		return
	}

	name := command[0]
	if !strings.Contains(name, "/") {
		v.warn("command", fmt.Sprintf("%s has no path; it resolves against the host PATH, not the guest's", name))
		return
	}

	tr := translate.New(cfg)
	res, err := tr.Resolve(name, cfg.WorkingDir, true)
	if err != nil {
		v.fail("command", fmt.Sprintf("cannot translate %s: %v", name, err))
		return
	}

	info, err := os.Stat(res.HostPath)
	if err != nil {
		if os.IsNotExist(err) {
			v.fail("command", fmt.Sprintf("%s not found in the guest view (%s)", name, res.HostPath))
		} else {
			v.fail("command", fmt.Sprintf("cannot access %s: %v", res.HostPath, err))
		}
		return
	}

	if info.IsDir() || info.Mode()&0111 == 0 {
		v.fail("command", fmt.Sprintf("%s is not executable", name))
		return
	}

	v.pass("command", fmt.Sprintf("%s -> %s", name, res.HostPath))
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to trace")
	}
}
