// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bureau-foundation/ptroot/config"
)

// Sentinel translation failures. The syscall layer maps these to the
// errno the guest observes (ELOOP and ENAMETOOLONG respectively).
var (
	ErrSymlinkLoop = errors.New("too many levels of symbolic links")
	ErrPathTooLong = errors.New("translated path too long")
)

// Resolution is the transient result of translating one guest path.
type Resolution struct {
	// HostPath is the absolute, symlink-resolved host-side path.
	HostPath string

	// GuestPath is the canonical guest-side path (absolute, free of
	// ".", ".." and resolved symlinks).
	GuestPath string

	// ReadOnly reports whether the matched binding rejects writes.
	ReadOnly bool
}

type binding struct {
	host     string
	guest    string
	readOnly bool
}

// Translator rewrites paths between the guest and host views. It is
// immutable after construction and safe for concurrent use.
type Translator struct {
	rootfs   string
	byGuest  []binding // longest guest prefix first, later-declared first on ties
	byHost   []binding // longest host prefix first
	maxDepth int
	maxPath  int
}

// New builds a Translator from a validated configuration.
func New(cfg *config.Config) *Translator {
	bindings := make([]binding, 0, len(cfg.Bindings))
	// Reverse declaration order so that, after the stable sort by
	// prefix length, a later binding of equal specificity is
	// consulted first.
	for i := len(cfg.Bindings) - 1; i >= 0; i-- {
		b := cfg.Bindings[i]
		bindings = append(bindings, binding{host: b.Host, guest: b.Guest, readOnly: b.ReadOnly})
	}

	byGuest := make([]binding, len(bindings))
	copy(byGuest, bindings)
	sort.SliceStable(byGuest, func(i, j int) bool {
		return len(byGuest[i].guest) > len(byGuest[j].guest)
	})

	byHost := make([]binding, len(bindings))
	copy(byHost, bindings)
	sort.SliceStable(byHost, func(i, j int) bool {
		return len(byHost[i].host) > len(byHost[j].host)
	})

	return &Translator{
		rootfs:   cfg.Rootfs,
		byGuest:  byGuest,
		byHost:   byHost,
		maxDepth: cfg.MaxSymlinkDepth,
		maxPath:  cfg.MaxPathLength,
	}
}

// matchPrefix reports whether path is prefix itself or lies under it,
// on a component boundary.
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// hostFor maps a canonical guest path to its host equivalent by
// longest guest-prefix match, falling back to the rootfs mapping.
func (t *Translator) hostFor(guest string) (string, bool) {
	for _, b := range t.byGuest {
		if matchPrefix(guest, b.guest) {
			rest := guest[len(b.guest):]
			if b.guest == "/" {
				rest = guest
			}
			if rest == "" || rest == "/" {
				return b.host, b.readOnly
			}
			return b.host + rest, b.readOnly
		}
	}
	if guest == "/" {
		return t.rootfs, false
	}
	return t.rootfs + guest, false
}

// split breaks a path into its non-empty components.
func split(path string) []string {
	var components []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}

// parent pops the last component, never rising above "/".
func parent(path string) string {
	if path == "/" {
		return "/"
	}
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// Resolve canonicalizes a guest path and maps it to the host view.
// Relative paths are interpreted against cwd, the calling tracee's
// guest-side working directory. When followFinal is false the final
// component is not dereferenced, matching the l-variant syscalls
// (lstat, readlink, unlink and friends).
func (t *Translator) Resolve(path, cwd string, followFinal bool) (Resolution, error) {
	if !strings.HasPrefix(path, "/") {
		if cwd == "" {
			cwd = "/"
		}
		path = cwd + "/" + path
	}

	work := split(path)
	canonical := "/"
	budget := t.maxDepth

	for len(work) > 0 {
		component := work[0]
		work = work[1:]

		switch component {
		case ".":
			continue
		case "..":
			// Clamped at the guest root, as a real chroot would.
			canonical = parent(canonical)
			continue
		}

		next := canonical + "/" + component
		if canonical == "/" {
			next = "/" + component
		}

		final := len(work) == 0
		if final && !followFinal {
			canonical = next
			break
		}

		host, _ := t.hostFor(next)
		info, err := os.Lstat(host)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			// Missing components are kept verbatim so creating
			// syscalls can translate paths that do not exist yet.
			canonical = next
			continue
		}

		budget--
		if budget < 0 {
			return Resolution{}, ErrSymlinkLoop
		}
		target, err := os.Readlink(host)
		if err != nil {
			return Resolution{}, err
		}
		if filepath.IsAbs(target) {
			canonical = "/"
		}
		work = append(split(target), work...)
	}

	host, readOnly := t.hostFor(canonical)
	if len(host) >= t.maxPath || len(canonical) >= t.maxPath {
		return Resolution{}, ErrPathTooLong
	}
	return Resolution{HostPath: host, GuestPath: canonical, ReadOnly: readOnly}, nil
}

// ToHost is the common case of Resolve: full dereference, host path
// only.
func (t *Translator) ToHost(path, cwd string) (string, error) {
	res, err := t.Resolve(path, cwd, true)
	if err != nil {
		return "", err
	}
	return res.HostPath, nil
}

// ToGuest maps a host path back into the guest view by longest
// host-prefix match. It is used on syscall results (getcwd, readlink
// targets), which the kernel produced already canonicalized. A host
// path outside every binding and the rootfs is returned unchanged.
func (t *Translator) ToGuest(hostPath string) string {
	hostPath = filepath.Clean(hostPath)
	for _, b := range t.byHost {
		if matchPrefix(hostPath, b.host) {
			rest := hostPath[len(b.host):]
			if rest == "" {
				return b.guest
			}
			if b.guest == "/" {
				return rest
			}
			return b.guest + rest
		}
	}
	if hostPath == t.rootfs {
		return "/"
	}
	if matchPrefix(hostPath, t.rootfs) {
		return hostPath[len(t.rootfs):]
	}
	return hostPath
}
