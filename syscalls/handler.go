// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syscalls

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/config"
	"github.com/bureau-foundation/ptroot/translate"
	"github.com/bureau-foundation/ptroot/tracer/memory"
	"github.com/bureau-foundation/ptroot/tracer/regs"
)

// Context carries everything a handler needs for one syscall exchange
// with one tracee. The tracer fills it at each stop; handlers mutate
// Regs and mark it dirty for write-back.
type Context struct {
	Pid        int
	Regs       *regs.Regs // current registers, mutable
	EntryRegs  *regs.Regs // snapshot taken at syscall entry
	Mem        *memory.Accessor
	Translator *translate.Translator
	Config     *config.Config
	Cwd        string // the tracee's guest-side working directory
	Log        *slog.Logger

	dirty bool
}

// MarkDirty records that Regs must be stored back into the tracee.
func (c *Context) MarkDirty() { c.dirty = true }

// Dirty reports whether Regs were mutated.
func (c *Context) Dirty() bool { return c.dirty }

// EnterResult is what a syscall-entry handler decided.
type EnterResult struct {
	// Deny, when nonzero, cancels the syscall; the tracer plants
	// -Deny in the return register at exit.
	Deny unix.Errno

	// NewCwd is the canonical guest directory to commit as the
	// tracee's working directory if the syscall succeeds.
	NewCwd string
}

// ExitResult is what a syscall-exit handler decided.
type ExitResult struct {
	// NewCwd, when non-empty, becomes the tracee's guest working
	// directory.
	NewCwd string
}

// ErrnoReturn encodes an errno the way the kernel returns it to user
// space: as a small negative value in the result register.
func ErrnoReturn(errno unix.Errno) uint64 {
	return uint64(-int64(errno))
}

// DenyErrno maps a translation failure to the errno delivered to the
// guest. Accessor failures are not translation failures and never
// reach here.
func DenyErrno(err error) unix.Errno {
	switch {
	case errors.Is(err, translate.ErrSymlinkLoop):
		return unix.ELOOP
	case errors.Is(err, translate.ErrPathTooLong),
		errors.Is(err, memory.ErrStringTooLong),
		errors.Is(err, memory.ErrScratchOverflow):
		return unix.ENAMETOOLONG
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EACCES
}

// writeIntent reports whether open-style flags ask for write access.
func writeIntent(flags uint64) bool {
	switch flags & (unix.O_RDONLY | unix.O_WRONLY | unix.O_RDWR) {
	case unix.O_WRONLY, unix.O_RDWR:
		return true
	}
	return flags&(unix.O_CREAT|unix.O_TRUNC|unix.O_APPEND|unix.O_TMPFILE) != 0
}

// baseDir returns the guest directory anchoring a relative path: the
// tracee's cwd for AT_FDCWD, otherwise the directory behind the
// dirfd, recovered through /proc and mapped back to the guest view.
func (c *Context) baseDir(e *Entry, pathIndex int) (string, error) {
	if e.DirfdArgs == nil || e.DirfdArgs[pathIndex] < 0 {
		return c.Cwd, nil
	}
	dirfd := int32(c.Regs.Arg(e.DirfdArgs[pathIndex]))
	if dirfd == unix.AT_FDCWD {
		return c.Cwd, nil
	}
	hostDir, err := os.Readlink(fmt.Sprintf("/proc/%d/fd/%d", c.Pid, dirfd))
	if err != nil {
		return "", err
	}
	return c.Translator.ToGuest(hostDir), nil
}

// follow decides final-component dereference for this invocation.
// Runtime AT_* flags override the static default in either direction:
// AT_SYMLINK_NOFOLLOW suppresses it, AT_SYMLINK_FOLLOW (linkat)
// requests it.
func (c *Context) follow(e *Entry) bool {
	follow := !e.NoFollow
	if e.AtFlagsArg != 0 {
		flags := c.Regs.Arg(e.AtFlagsArg)
		if flags&unix.AT_SYMLINK_NOFOLLOW != 0 {
			follow = false
		}
		if flags&unix.AT_SYMLINK_FOLLOW != 0 {
			follow = true
		}
	}
	return follow
}

// stagePath writes a host path into freshly reserved scratch space
// and repoints the syscall argument at it.
func (c *Context) stagePath(argIndex int, hostPath string) error {
	addr, err := memory.AllocateScratch(c.Regs, c.EntryRegs, uint64(len(hostPath)+1))
	if err != nil {
		return err
	}
	if err := c.Mem.PokeString(uintptr(addr), hostPath); err != nil {
		return err
	}
	c.Regs.SetArg(argIndex, addr)
	c.MarkDirty()
	return nil
}

// HandleEnter runs a classified syscall's entry-side work. A returned
// error is an accessor failure, fatal to this tracee; everything else
// is expressed through EnterResult.
func HandleEnter(c *Context, e *Entry) (EnterResult, error) {
	if e.Kind == KindExec {
		return handleExecEnter(c, e)
	}

	var result EnterResult
	for i, argIndex := range e.PathArgs {
		addr := c.Regs.Arg(argIndex)
		if addr == 0 {
			continue
		}
		path, err := c.Mem.PeekString(uintptr(addr), c.Config.MaxPathLength)
		if err != nil {
			if errors.Is(err, memory.ErrStringTooLong) {
				return EnterResult{Deny: unix.ENAMETOOLONG}, nil
			}
			return EnterResult{}, err
		}
		// AT_EMPTY_PATH operates on the dirfd itself.
		if path == "" {
			continue
		}

		base, err := c.baseDir(e, i)
		if err != nil {
			return EnterResult{Deny: unix.EBADF}, nil
		}

		res, err := c.Translator.Resolve(path, base, c.follow(e))
		if err != nil {
			c.Log.Debug("path translation denied",
				"syscall", e.Name, "pid", c.Pid, "path", path, "error", err)
			return EnterResult{Deny: DenyErrno(err)}, nil
		}

		if res.ReadOnly {
			writes, err := c.writesThrough(e)
			if err != nil {
				if errors.Is(err, memory.ErrTraceeGone) {
					return EnterResult{}, err
				}
				return EnterResult{Deny: unix.EFAULT}, nil
			}
			if writes {
				return EnterResult{Deny: unix.EROFS}, nil
			}
		}

		if err := c.stagePath(argIndex, res.HostPath); err != nil {
			if errors.Is(err, memory.ErrTraceeGone) {
				return EnterResult{}, err
			}
			return EnterResult{Deny: DenyErrno(err)}, nil
		}

		if e.UpdatesCwd {
			result.NewCwd = res.GuestPath
		}

		c.Log.Debug("path translated",
			"syscall", e.Name, "pid", c.Pid, "guest", res.GuestPath, "host", res.HostPath)
	}
	return result, nil
}

// writesThrough reports write intent for this invocation: either the
// syscall always writes, or its open flags do. openat2 keeps its
// flags in the tracee-side struct open_how, whose first u64 member is
// the flags word, so that case peeks the tracee.
func (c *Context) writesThrough(e *Entry) (bool, error) {
	if e.Writes {
		return true, nil
	}
	if e.OpenFlagsArg != 0 {
		return writeIntent(c.Regs.Arg(e.OpenFlagsArg)), nil
	}
	if e.OpenHowArg != 0 {
		flags, err := c.Mem.PeekWord(uintptr(c.Regs.Arg(e.OpenHowArg)))
		if err != nil {
			return false, err
		}
		return writeIntent(flags), nil
	}
	return false, nil
}

// HandleExit runs a classified syscall's exit-side work: output
// buffer rewriting and working-directory commits.
func HandleExit(c *Context, e *Entry) (ExitResult, error) {
	returned := int64(c.Regs.ReturnValue())

	if e.UpdatesCwd && returned == 0 && e.Name == "fchdir" {
		hostDir, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", c.Pid))
		if err != nil {
			return ExitResult{}, nil
		}
		return ExitResult{NewCwd: c.Translator.ToGuest(hostDir)}, nil
	}

	if e.Kind != KindOutputPath || returned <= 0 {
		return ExitResult{}, nil
	}

	switch e.Name {
	case "getcwd":
		return c.rewriteGetcwd(returned)
	case "readlink":
		return c.rewriteReadlink(returned, 1, 2)
	case "readlinkat":
		return c.rewriteReadlink(returned, 2, 3)
	}
	return ExitResult{}, nil
}

// rewriteGetcwd replaces the host-side cwd the kernel reported with
// the guest view, adjusting the returned length.
func (c *Context) rewriteGetcwd(returned int64) (ExitResult, error) {
	bufAddr := uintptr(c.EntryRegs.Arg(0))
	bufSize := c.EntryRegs.Arg(1)

	buf := make([]byte, returned) // includes the NUL
	if err := c.Mem.Peek(bufAddr, buf); err != nil {
		return ExitResult{}, err
	}
	hostPath := string(buf[:len(buf)-1])
	guestPath := c.Translator.ToGuest(hostPath)
	if guestPath == hostPath {
		return ExitResult{}, nil
	}
	if uint64(len(guestPath)+1) > bufSize {
		c.Regs.SetReturnValue(ErrnoReturn(unix.ERANGE))
		c.MarkDirty()
		return ExitResult{}, nil
	}
	if err := c.Mem.PokeString(bufAddr, guestPath); err != nil {
		return ExitResult{}, err
	}
	c.Regs.SetReturnValue(uint64(len(guestPath) + 1))
	c.MarkDirty()
	return ExitResult{}, nil
}

// rewriteReadlink maps an absolute link target back into the guest
// view. Relative targets and targets outside every binding are left
// as the kernel produced them.
func (c *Context) rewriteReadlink(returned int64, bufArg, sizeArg int) (ExitResult, error) {
	bufAddr := uintptr(c.EntryRegs.Arg(bufArg))
	bufSize := int64(c.EntryRegs.Arg(sizeArg))

	buf := make([]byte, returned) // readlink result carries no NUL
	if err := c.Mem.Peek(bufAddr, buf); err != nil {
		return ExitResult{}, err
	}
	target := string(buf)
	if len(target) == 0 || target[0] != '/' {
		return ExitResult{}, nil
	}
	guestTarget := c.Translator.ToGuest(target)
	if guestTarget == target {
		return ExitResult{}, nil
	}
	// readlink semantics: silent truncation at the buffer size.
	out := []byte(guestTarget)
	if int64(len(out)) > bufSize {
		out = out[:bufSize]
	}
	if err := c.Mem.Poke(bufAddr, out); err != nil {
		return ExitResult{}, err
	}
	c.Regs.SetReturnValue(uint64(len(out)))
	c.MarkDirty()
	return ExitResult{}, nil
}
