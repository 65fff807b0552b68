// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for the cached
// clone hostlaunch keeps per repository. Every command on a
// [Repository] targets its directory via the -C flag, which is
// injected by all Repository methods.
//
// Failures are reported as *[CommandError], which keeps git's stderr
// verbatim so callers can surface the diagnostic unchanged.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the git executable used when none is configured.
// It is resolved through PATH by os/exec.
const DefaultBinary = "git"

// CommandError reports a failed git invocation.
type CommandError struct {
	// Args are the git arguments, without the -C prefix.
	Args []string

	// Dir is the repository directory, or empty for clone.
	Dir string

	// Stderr is git's diagnostic output, unmodified.
	Stderr string

	Err error
}

func (e *CommandError) Error() string {
	location := ""
	if e.Dir != "" {
		location = " in " + e.Dir
	}
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("git %s%s: %v", strings.Join(e.Args, " "), location, e.Err)
	}
	return fmt.Sprintf("git %s%s: %v (stderr: %s)", strings.Join(e.Args, " "), location, e.Err, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Repository represents a git working tree at a specific directory.
// There is no default directory: callers always say which repository
// they mean.
type Repository struct {
	dir    string
	binary string
}

// NewRepository returns a Repository targeting dir with the default
// git binary.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir, binary: DefaultBinary}
}

// WithBinary returns a copy of r that runs binary instead of git.
// An empty binary keeps the current one.
func (r *Repository) WithBinary(binary string) *Repository {
	copied := *r
	if binary != "" {
		copied.binary = binary
	}
	return &copied
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Clone runs "git clone <url> <dir>" and returns the new repository.
// binary may be empty for the default git.
func Clone(ctx context.Context, binary, url, dir string) (*Repository, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	args := []string{"clone", url, dir}
	if _, err := run(ctx, binary, "", args); err != nil {
		return nil, err
	}
	return &Repository{dir: dir, binary: binary}, nil
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and carried in the returned
// *CommandError on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, r.binary, r.dir, args)
}

// Fetch updates every remote, including tags. Tags that moved on the
// remote are overwritten locally. The working tree is not touched.
func (r *Repository) Fetch(ctx context.Context) error {
	_, err := r.Run(ctx, "fetch", "--all", "--tags", "--force")
	return err
}

// Checkout switches the working tree to revision (a tag, branch, or
// commit), detaching HEAD when revision is not a local branch. A
// revision starting with '-' is still a revision, never an option.
func (r *Repository) Checkout(ctx context.Context, revision string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", "--end-of-options", revision)
	return err
}

// HeadCommit returns the full hash of the commit HEAD points at.
func (r *Repository) HeadCommit(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func run(ctx context.Context, binary, dir string, args []string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", &CommandError{Args: args, Dir: dir, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}
