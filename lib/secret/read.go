// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds how much of a password file is read.
const MaxFileSize = 64 << 10

// ReadFromPath reads a password file into a locked buffer the caller
// must close. Only the first line counts: surrounding whitespace and a
// trailing CR are dropped, so files written by editors on any platform
// work. The path must name a regular file whose first line is not
// blank.
func ReadFromPath(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("password file %s is not a regular file", path)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("reading password file %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("password file %s is larger than %d bytes", path, MaxFileSize)
	}

	line := data
	if end := bytes.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("password file %s is empty", path)
	}
	return NewFromBytes(line)
}
