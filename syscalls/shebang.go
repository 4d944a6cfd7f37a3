// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syscalls

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// shebangLimit bounds how much of a script header is examined. The
// kernel reads at most one buffer page; 256 bytes covers every
// interpreter line seen in practice.
const shebangLimit = 256

// shebang is a parsed interpreter directive.
type shebang struct {
	interpreter string
	arg         string // everything after the interpreter, trimmed; may be empty
}

// readShebang inspects the file at hostPath for an interpreter
// directive. It returns (nil, nil) for binaries and scripts without
// one; open and read failures surface the underlying error.
func readShebang(hostPath string) (*shebang, error) {
	f, err := os.Open(hostPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, shebangLimit)
	n, err := f.Read(buf)
	if n < 2 {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, nil
	}
	if buf[0] != '#' || buf[1] != '!' {
		return nil, nil
	}
	return parseShebang(buf[:n]), nil
}

// parseShebang extracts the interpreter and its optional argument
// from a header known to start with "#!". The kernel treats all text
// after the interpreter as one single argument, and so do we.
func parseShebang(header []byte) *shebang {
	line := header[2:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	text := strings.TrimSpace(string(line))
	if text == "" {
		return nil
	}
	interp := text
	var arg string
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		interp = text[:i]
		arg = strings.TrimSpace(text[i+1:])
	}
	return &shebang{interpreter: interp, arg: arg}
}
