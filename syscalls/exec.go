// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syscalls

import (
	"encoding/binary"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptroot/tracer/memory"
)

// maxArgv bounds how many argument pointers are read back from a
// tracee. Sized to admit anything the kernel itself would accept
// under a 2 MiB ARG_MAX; a vector still unterminated past this is
// over the kernel limit too and is denied E2BIG.
const maxArgv = 131072

// execDenyErrno maps an argv read-back failure to the errno the guest
// sees. An interrupted vector is a fault; one with no terminator in
// bounds mirrors the kernel's own too-many-arguments failure.
func execDenyErrno(err error) unix.Errno {
	if errors.Is(err, memory.ErrVectorTooLong) {
		return unix.E2BIG
	}
	return unix.EFAULT
}

// handleExecEnter translates the program path of execve/execveat and,
// when the target is a script, rewrites the call to invoke the
// interpreter named by its directive. Without the rewrite the kernel
// would resolve the interpreter against the host root and escape the
// guest view.
func handleExecEnter(c *Context, e *Entry) (EnterResult, error) {
	pathArg := e.PathArgs[0]
	argvArg := pathArg + 1

	addr := c.Regs.Arg(pathArg)
	path, err := c.Mem.PeekString(uintptr(addr), c.Config.MaxPathLength)
	if err != nil {
		if errors.Is(err, memory.ErrStringTooLong) {
			return EnterResult{Deny: unix.ENAMETOOLONG}, nil
		}
		return EnterResult{}, err
	}
	if path == "" {
		// AT_EMPTY_PATH execveat runs the dirfd itself; nothing
		// to translate.
		return EnterResult{}, nil
	}

	base, err := c.baseDir(e, 0)
	if err != nil {
		return EnterResult{Deny: unix.EBADF}, nil
	}
	res, err := c.Translator.Resolve(path, base, c.follow(e))
	if err != nil {
		return EnterResult{Deny: DenyErrno(err)}, nil
	}

	if c.Config.InterpreterEmulation {
		sb, sbErr := readShebang(res.HostPath)
		if sbErr == nil && sb != nil {
			return c.stageInterpreter(sb, res.GuestPath, pathArg, argvArg)
		}
	}

	if err := c.stagePath(pathArg, res.HostPath); err != nil {
		if errors.Is(err, memory.ErrTraceeGone) {
			return EnterResult{}, err
		}
		return EnterResult{Deny: DenyErrno(err)}, nil
	}
	c.Log.Debug("exec translated",
		"syscall", e.Name, "pid", c.Pid, "guest", res.GuestPath, "host", res.HostPath)
	return EnterResult{}, nil
}

// stageInterpreter rewrites an exec of a script into an exec of its
// interpreter, single level. The staged call is
//
//	exec(hostInterp, [interp, interpArg?, guestScript, argv[1:]...], envp)
//
// with the new strings and the rebuilt argument vector placed in
// scratch space below the tracee's stack. Original argv tail pointers
// are reused in place; they stay valid until the exec replaces the
// image.
func (c *Context) stageInterpreter(sb *shebang, guestScript string, pathArg, argvArg int) (EnterResult, error) {
	ires, err := c.Translator.Resolve(sb.interpreter, "/", true)
	if err != nil {
		// The directive names something the guest view cannot
		// reach; the kernel would report the same for a chroot.
		return EnterResult{Deny: unix.ENOENT}, nil
	}

	origArgv, err := c.Mem.PeekPointerVector(uintptr(c.Regs.Arg(argvArg)), maxArgv)
	if err != nil {
		if errors.Is(err, memory.ErrTraceeGone) {
			return EnterResult{}, err
		}
		return EnterResult{Deny: execDenyErrno(err)}, nil
	}

	strs := []string{ires.HostPath, sb.interpreter}
	if sb.arg != "" {
		strs = append(strs, sb.arg)
	}
	strs = append(strs, guestScript)

	// Layout: pointer vector first, the new strings after it. The
	// host interpreter path is staged but not part of argv.
	vectorLen := len(strs) - 1 + len(origArgv) // argv entries, minus original argv[0], plus NULL
	if len(origArgv) == 0 {
		vectorLen++ // degenerate empty argv still gets a terminator
	}
	size := uint64(vectorLen * 8)
	for _, s := range strs {
		size += uint64(len(s) + 1)
	}

	block, err := memory.AllocateScratch(c.Regs, c.EntryRegs, size)
	if err != nil {
		return EnterResult{Deny: unix.E2BIG}, nil
	}

	buf := make([]byte, size)
	strAddrs := make([]uint64, len(strs))
	off := vectorLen * 8
	for i, s := range strs {
		strAddrs[i] = block + uint64(off)
		copy(buf[off:], s)
		off += len(s) + 1
	}

	vector := make([]uint64, 0, vectorLen)
	vector = append(vector, strAddrs[1:]...) // interp, arg?, guestScript
	if len(origArgv) > 1 {
		vector = append(vector, origArgv[1:]...)
	}
	vector = append(vector, 0)
	for i, p := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], p)
	}

	if err := c.Mem.Poke(uintptr(block), buf); err != nil {
		if errors.Is(err, memory.ErrTraceeGone) {
			return EnterResult{}, err
		}
		return EnterResult{Deny: unix.EFAULT}, nil
	}

	c.Regs.SetArg(pathArg, strAddrs[0])
	c.Regs.SetArg(argvArg, block)
	c.MarkDirty()

	c.Log.Debug("interpreter staged",
		"pid", c.Pid, "script", guestScript,
		"interpreter", sb.interpreter, "host", ires.HostPath)
	return EnterResult{}, nil
}
