// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkout keeps a local clone of the application repository
// and moves it to the version a host record asks for.
//
// One clone per repository is shared across versions: the first run
// clones, later runs fetch and check out. The clone is never pulled or
// merged, so a checkout always lands exactly on the requested ref.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hostlaunch/hostlaunch/lib/git"
)

// Op names the git operation that failed.
type Op string

const (
	OpClone    Op = "clone"
	OpFetch    Op = "fetch"
	OpCheckout Op = "checkout"
)

// Error reports a failed provisioning step. Diagnostic is git's stderr,
// unmodified.
type Error struct {
	Op         Op
	Version    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Op == OpCheckout && e.Version != "" {
		return fmt.Sprintf("checkout of version %q failed: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result describes the prepared working tree.
type Result struct {
	Path    string
	Version string
	Commit  string

	// Cloned is true when this call created the clone.
	Cloned bool
}

// Provisioner prepares clones. The zero value uses git from PATH and
// discards logs.
type Provisioner struct {
	// Git is the git binary. Empty means git from PATH.
	Git string

	Logger *slog.Logger
}

// Prepare makes clonePath a working tree of repoURL checked out at
// version.
//
// An absent clonePath is cloned; a failed clone is terminal. A present
// one is fetched (all remotes, tags forced); a failed fetch keeps the
// clone and fails the step. Either way the version is then checked out
// and its commit recorded.
func (p *Provisioner) Prepare(ctx context.Context, repoURL, version, clonePath string) (Result, error) {
	logger := p.logger().With("repository", clonePath, "version", version)

	if repoURL == "" {
		return Result{}, &Error{Op: OpClone, Version: version, Err: errors.New("repository URL is empty")}
	}
	if version == "" {
		return Result{}, &Error{Op: OpCheckout, Err: errors.New("version is empty")}
	}

	result := Result{Path: clonePath, Version: version}
	var repo *git.Repository

	_, statErr := os.Stat(clonePath)
	switch {
	case errors.Is(statErr, fs.ErrNotExist):
		logger.Info("cloning repository", "url", repoURL)
		cloned, err := git.Clone(ctx, p.Git, repoURL, clonePath)
		if err != nil {
			return Result{}, wrap(OpClone, version, err)
		}
		repo = cloned
		result.Cloned = true
	case statErr != nil:
		return Result{}, &Error{Op: OpClone, Version: version, Err: statErr}
	default:
		repo = git.NewRepository(clonePath).WithBinary(p.Git)
		logger.Info("fetching updates")
		if err := repo.Fetch(ctx); err != nil {
			return Result{}, wrap(OpFetch, version, err)
		}
	}

	logger.Info("checking out version")
	if err := repo.Checkout(ctx, version); err != nil {
		return Result{}, wrap(OpCheckout, version, err)
	}
	commit, err := repo.HeadCommit(ctx)
	if err != nil {
		return Result{}, wrap(OpCheckout, version, err)
	}
	result.Commit = commit
	logger.Info("repository ready", "commit", commit)
	return result, nil
}

func wrap(op Op, version string, err error) *Error {
	wrapped := &Error{Op: op, Version: version, Err: err}
	var commandError *git.CommandError
	if errors.As(err, &commandError) {
		wrapped.Diagnostic = commandError.Stderr
	}
	return wrapped
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
