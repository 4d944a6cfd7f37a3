// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default engine limits. MaxPathLength mirrors PATH_MAX and
// MaxSymlinkDepth mirrors the kernel's MAXSYMLINKS.
const (
	DefaultMaxPathLength   = 4096
	DefaultMaxSymlinkDepth = 40
)

// Binding maps a host directory into the guest view. Guest paths are
// what the traced program sees; host paths are where its accesses
// actually land.
type Binding struct {
	// Host is the real filesystem location backing the binding.
	Host string `yaml:"host"`

	// Guest is the path at which the host location appears inside
	// the sandbox.
	Guest string `yaml:"guest"`

	// ReadOnly rejects write-intent syscalls on paths under this
	// binding with EROFS, as if the binding were a read-only mount.
	ReadOnly bool `yaml:"read_only,omitempty"`
}

// Config is the full sandbox configuration for one traced session.
type Config struct {
	// Rootfs is the host directory serving as the guest's /. The
	// rootfs acts as the implicit lowest-priority binding: any guest
	// path not covered by an explicit binding maps under it.
	Rootfs string `yaml:"rootfs"`

	// Bindings are applied by longest guest-prefix match. Order
	// matters only between bindings of equal prefix length, where
	// the later declaration wins.
	Bindings []Binding `yaml:"bindings,omitempty"`

	// WorkingDir is the guest-side initial working directory for the
	// launched command. Defaults to /.
	WorkingDir string `yaml:"working_dir,omitempty"`

	// MaxPathLength bounds translated paths. A translation whose
	// result exceeds this fails with ENAMETOOLONG rather than
	// truncating.
	MaxPathLength int `yaml:"max_path_length,omitempty"`

	// MaxSymlinkDepth bounds symlink resolution during path
	// canonicalization. Exceeding it fails with ELOOP.
	MaxSymlinkDepth int `yaml:"max_symlink_depth,omitempty"`

	// InterpreterEmulation rewrites execve of "#!" scripts into a
	// direct invocation of the (translated) interpreter. Without it
	// the kernel would resolve the interpreter path outside the
	// guest view.
	InterpreterEmulation bool `yaml:"interpreter_emulation"`

	// KillOnExit kills every remaining tracee when the root tracee
	// terminates, instead of waiting for them to finish.
	KillOnExit bool `yaml:"kill_on_exit,omitempty"`

	// Verbose enables debug logging in the engine.
	Verbose bool `yaml:"verbose,omitempty"`
}

// Default returns a Config with the engine defaults applied. Loading
// starts from this value so that absent YAML keys keep their defaults.
func Default() *Config {
	return &Config{
		WorkingDir:           "/",
		MaxPathLength:        DefaultMaxPathLength,
		MaxSymlinkDepth:      DefaultMaxSymlinkDepth,
		InterpreterEmulation: true,
	}
}

// Load reads a Config from a YAML file. The result still needs
// Validate before use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}

// ParseBinding parses a command-line binding of the form
// "host:guest[:ro]". A bare "path" binds the same path on both sides,
// matching the behavior users expect from bind mounts.
func ParseBinding(spec string) (Binding, error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 1:
		return Binding{Host: parts[0], Guest: parts[0]}, nil
	case 2:
		return Binding{Host: parts[0], Guest: parts[1]}, nil
	case 3:
		if parts[2] != "ro" {
			return Binding{}, fmt.Errorf("binding %q: unknown flag %q (only \"ro\" is supported)", spec, parts[2])
		}
		return Binding{Host: parts[0], Guest: parts[1], ReadOnly: true}, nil
	default:
		return Binding{}, fmt.Errorf("binding %q: expected host:guest[:ro]", spec)
	}
}

// Validate normalizes the configuration and surfaces configuration
// errors before any tracee exists. After a successful Validate all
// paths are absolute and cleaned.
func (c *Config) Validate() error {
	if c.Rootfs == "" {
		return fmt.Errorf("rootfs is required")
	}
	rootfs, err := filepath.Abs(c.Rootfs)
	if err != nil {
		return fmt.Errorf("resolving rootfs path: %w", err)
	}
	info, err := os.Stat(rootfs)
	if err != nil {
		return fmt.Errorf("rootfs: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rootfs %s is not a directory", rootfs)
	}
	c.Rootfs = rootfs

	for i := range c.Bindings {
		b := &c.Bindings[i]
		if b.Host == "" || b.Guest == "" {
			return fmt.Errorf("binding %d: host and guest are required", i)
		}
		if !filepath.IsAbs(b.Host) {
			return fmt.Errorf("binding %d: host path %q must be absolute", i, b.Host)
		}
		if !filepath.IsAbs(b.Guest) {
			return fmt.Errorf("binding %d: guest path %q must be absolute", i, b.Guest)
		}
		if _, err := os.Stat(b.Host); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
		b.Host = filepath.Clean(b.Host)
		b.Guest = filepath.Clean(b.Guest)
	}

	if c.WorkingDir == "" {
		c.WorkingDir = "/"
	}
	if !filepath.IsAbs(c.WorkingDir) {
		return fmt.Errorf("working directory %q must be absolute (guest-side)", c.WorkingDir)
	}
	c.WorkingDir = filepath.Clean(c.WorkingDir)

	if c.MaxPathLength <= 0 {
		c.MaxPathLength = DefaultMaxPathLength
	}
	if c.MaxSymlinkDepth <= 0 {
		c.MaxSymlinkDepth = DefaultMaxSymlinkDepth
	}
	return nil
}
