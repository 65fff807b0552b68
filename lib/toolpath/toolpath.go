// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolpath resolves the external binaries hostlaunch drives
// (uv, git, xmllint) and runs them with uniform error formatting.
//
// Resolution never consults the process environment directly: the
// search path and the launcher's own location are injected through a
// [Locator], which the configuration layer fills in once at startup.
package toolpath

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no candidate location holds the binary.
var ErrNotFound = errors.New("binary not found")

// Locator describes where to look for binaries.
type Locator struct {
	// SearchPath is a PATH-style list, split with the separator for
	// GOOS.
	SearchPath string

	// Executable is the launcher's own path. Bundled binaries are
	// looked up relative to its directory.
	Executable string

	// GOOS selects executable suffixes and list separators. Empty
	// means the host OS.
	GOOS string
}

func (l Locator) windows() bool {
	return l.GOOS == "windows"
}

// names returns the file names tried for a binary: on Windows the
// .exe variant first, then the bare name.
func (l Locator) names(name string) []string {
	if l.windows() && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return []string{name + ".exe", name}
	}
	return []string{name}
}

// LookPath searches the injected search path.
func (l Locator) LookPath(name string) (string, error) {
	separator := string(os.PathListSeparator)
	if l.GOOS != "" {
		separator = ":"
		if l.windows() {
			separator = ";"
		}
	}
	for _, directory := range strings.Split(l.SearchPath, separator) {
		if directory == "" {
			continue
		}
		for _, candidate := range l.names(name) {
			path := filepath.Join(directory, candidate)
			if IsExecutable(path, l.GOOS) {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w on PATH", name, ErrNotFound)
}

// Bundled lists the locations a binary shipped alongside the launcher
// may occupy: next to the executable, in scripts/ beside it, and in
// scripts/ one level up.
func (l Locator) Bundled(name string) []string {
	if l.Executable == "" {
		return nil
	}
	directory := filepath.Dir(l.Executable)
	var candidates []string
	for _, base := range []string{
		directory,
		filepath.Join(directory, "scripts"),
		filepath.Join(directory, "..", "scripts"),
	} {
		for _, candidate := range l.names(name) {
			candidates = append(candidates, filepath.Join(base, candidate))
		}
	}
	return candidates
}

// Find resolves name by checking the search path first and then the
// bundled locations. The returned path is absolute when the candidate
// could be made absolute.
func (l Locator) Find(name string) (string, error) {
	if path, err := l.LookPath(name); err == nil {
		return absolute(path), nil
	}
	for _, candidate := range l.Bundled(name) {
		if IsExecutable(candidate, l.GOOS) {
			return absolute(candidate), nil
		}
	}
	if l.Executable == "" {
		return "", fmt.Errorf("%s: %w on PATH", name, ErrNotFound)
	}
	return "", fmt.Errorf("%s: %w on PATH or next to %s", name, ErrNotFound, filepath.Dir(l.Executable))
}

func absolute(path string) string {
	if resolved, err := filepath.Abs(path); err == nil {
		return resolved
	}
	return path
}

// IsExecutable reports whether path is a regular file that the
// current user may execute. On Windows any regular file qualifies.
func IsExecutable(path, goos string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if goos == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// CheckExecutable returns a descriptive error when path is not an
// executable regular file.
func CheckExecutable(path, goos string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if goos != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// Command describes one invocation of an external binary.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env replaces the child's environment when non-nil.
	Env []string
}

// Output runs the command and returns its stdout. Stderr is captured
// separately; on failure it is returned as the diagnostic, and the
// error message prefers it over the generic exec error.
func (c Command) Output(ctx context.Context) (stdout string, diagnostic string, err error) {
	var out, errOut bytes.Buffer
	command := exec.CommandContext(ctx, c.Path, c.Args...)
	command.Dir = c.Dir
	command.Env = c.Env
	command.Stdout = &out
	command.Stderr = &errOut

	if err := command.Run(); err != nil {
		return out.String(), errOut.String(), FormatError(filepath.Base(c.Path), c.Args, errOut.String(), err)
	}
	return out.String(), errOut.String(), nil
}

// FormatError produces an error for a failed command, preferring the
// trimmed stderr text over the exec error. The exec error stays in the
// chain so callers can still inspect *exec.ExitError.
func FormatError(binaryName string, args []string, stderr string, err error) error {
	commandString := strings.TrimSpace(binaryName + " " + strings.Join(args, " "))
	if text := strings.TrimSpace(stderr); text != "" {
		return fmt.Errorf("%s: %s: %w", commandString, text, err)
	}
	return fmt.Errorf("%s: %w", commandString, err)
}

// ExitCode extracts the exit status from an error returned by
// [Command.Output], or -1 when the command did not run to completion.
func ExitCode(err error) int {
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode()
	}
	return -1
}
