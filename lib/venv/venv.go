// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package venv provisions one isolated Python environment per
// application version.
//
// An environment is built at most once: if its entry point script
// exists the environment is reused without invoking uv. Building
// creates the environment with "uv venv" and installs the checked-out
// repository into it in editable mode, then records a [Manifest]
// naming the commit it was built from. A watchdog marker beside the
// environment directory covers the build itself: an environment whose
// build never cleared its marker is rebuilt even if the entry point
// exists.
package venv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/clock"
	"github.com/hostlaunch/hostlaunch/lib/toolpath"
	"github.com/hostlaunch/hostlaunch/lib/uv"
	"github.com/hostlaunch/hostlaunch/lib/watchdog"
)

// Op names the provisioning step that failed.
type Op string

const (
	OpLocate  Op = "locate"
	OpCreate  Op = "create"
	OpInstall Op = "install"
)

// Error reports a failed provisioning step. Diagnostic is uv's stderr,
// unmodified.
type Error struct {
	Op         Op
	Version    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	switch e.Op {
	case OpLocate:
		return fmt.Sprintf("locating uv: %v", e.Err)
	case OpCreate:
		return fmt.Sprintf("creating environment for version %q: %v", e.Version, e.Err)
	default:
		return fmt.Sprintf("installing version %q: %v", e.Version, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes the environment to prepare.
type Request struct {
	Version  string
	Commit   string
	RepoPath string
	EnvDir   string

	// EntryPoint is the script name the install provides.
	EntryPoint string

	// RebuildOnCommitChange rebuilds an existing environment whose
	// manifest names a different commit. Otherwise the mismatch is
	// only logged.
	RebuildOnCommitChange bool
}

// Environment is a prepared environment.
type Environment struct {
	Dir        string
	BinDir     string
	Python     string
	EntryPoint string

	// Reused is true when no uv command ran.
	Reused bool

	// Manifest is the build record. It is zero for a reused
	// environment that predates manifests.
	Manifest Manifest
}

// Provisioner builds environments.
type Provisioner struct {
	// UVOverride is an explicit uv path (UV_PATH or environment.uv).
	UVOverride string

	// Locator finds uv when there is no override, and supplies the
	// search path and OS conventions.
	Locator toolpath.Locator

	// Environ is the base environment for uv.
	Environ []string

	Clock  clock.Clock
	Logger *slog.Logger
}

// EntryPointPath returns where the install places the entry point
// script: bin/<name> on Unix, Scripts\<name>.exe on Windows.
func EntryPointPath(envDir, name, goos string) string {
	if goos == "windows" {
		return filepath.Join(uv.BinDir(envDir, goos), name+".exe")
	}
	return filepath.Join(uv.BinDir(envDir, goos), name)
}

// BuildMarkerPath returns the watchdog file that exists while the
// environment at envDir is being built. It sits beside envDir so that
// removing a partial environment keeps it.
func BuildMarkerPath(envDir string) string {
	return filepath.Clean(envDir) + ".building"
}

// PythonPath returns the environment's interpreter path.
func PythonPath(envDir, goos string) string {
	return EntryPointPath(envDir, "python", goos)
}

// Prepare returns the environment for request, building it when its
// entry point is missing.
func (p *Provisioner) Prepare(ctx context.Context, request Request) (Environment, error) {
	goos := p.goos()
	logger := p.logger().With("environment", request.EnvDir, "version", request.Version)

	environment := Environment{
		Dir:        request.EnvDir,
		BinDir:     uv.BinDir(request.EnvDir, goos),
		Python:     PythonPath(request.EnvDir, goos),
		EntryPoint: EntryPointPath(request.EnvDir, request.EntryPoint, goos),
	}

	marker := BuildMarkerPath(request.EnvDir)
	interrupted, found, err := watchdog.Check(marker)
	if err != nil {
		logger.Warn("environment build marker unreadable", "marker", marker, "error", err)
	}
	if found {
		logger.Warn("previous environment build was interrupted, rebuilding",
			"interrupted_version", interrupted.Version,
			"interrupted_pid", interrupted.PID,
			"interrupted_at", interrupted.StartedAt)
	}

	if isFile(environment.EntryPoint) && !found {
		manifest, err := ReadManifest(request.EnvDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("environment manifest unreadable", "error", err)
		}
		stale := err == nil && request.Commit != "" && manifest.Commit != "" && manifest.Commit != request.Commit
		foreign := err == nil && manifest.Version != "" && manifest.Version != request.Version
		switch {
		case foreign:
			logger.Warn("rebuilding environment built for a different version",
				"built_version", manifest.Version)
		case stale && request.RebuildOnCommitChange:
			logger.Info("rebuilding environment built from a different commit",
				"built_commit", manifest.Commit, "commit", request.Commit)
		case stale:
			logger.Warn("reusing environment built from a different commit",
				"built_commit", manifest.Commit, "commit", request.Commit)
			fallthrough
		default:
			logger.Info("reusing existing environment")
			environment.Reused = true
			environment.Manifest = manifest
			return environment, nil
		}
	}

	uvPath, err := uv.Find(p.UVOverride, p.Locator)
	if err != nil {
		return Environment{}, &Error{Op: OpLocate, Version: request.Version, Err: err}
	}
	client := uv.Client{
		Binary:     uvPath,
		Environ:    p.Environ,
		SearchPath: p.Locator.SearchPath,
		GOOS:       goos,
	}

	state := watchdog.State{
		Operation: "environment build",
		Version:   request.Version,
		Commit:    request.Commit,
		PID:       os.Getpid(),
		StartedAt: p.now().UTC(),
	}
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return Environment{}, &Error{Op: OpCreate, Version: request.Version, Err: err}
	}
	if err := watchdog.Write(marker, state); err != nil {
		logger.Warn("writing environment build marker failed", "marker", marker, "error", err)
	}

	if err := os.RemoveAll(request.EnvDir); err != nil {
		return Environment{}, &Error{Op: OpCreate, Version: request.Version, Err: fmt.Errorf("removing partial environment: %w", err)}
	}
	logger.Info("creating environment", "uv", uvPath)
	if diagnostic, err := client.CreateEnvironment(ctx, request.EnvDir); err != nil {
		return Environment{}, &Error{Op: OpCreate, Version: request.Version, Diagnostic: diagnostic, Err: err}
	}
	logger.Info("installing repository in editable mode", "repository", request.RepoPath)
	if diagnostic, err := client.InstallEditable(ctx, request.EnvDir, request.RepoPath); err != nil {
		return Environment{}, &Error{Op: OpInstall, Version: request.Version, Diagnostic: diagnostic, Err: err}
	}
	if !isFile(environment.EntryPoint) {
		logger.Warn("install did not provide the entry point", "entry_point", environment.EntryPoint)
	}

	uvVersion, err := client.Version(ctx)
	if err != nil {
		logger.Warn("reading uv version failed", "error", err)
	}
	environment.Manifest = Manifest{
		Version:   request.Version,
		Commit:    request.Commit,
		RepoPath:  request.RepoPath,
		UV:        uvPath,
		BuiltAt:   p.now().UTC(),
		UVVersion: uvVersion,
	}
	if err := WriteManifest(request.EnvDir, environment.Manifest); err != nil {
		logger.Warn("writing environment manifest failed", "error", err)
	}
	if err := watchdog.Clear(marker); err != nil {
		logger.Warn("clearing environment build marker failed", "marker", marker, "error", err)
	}
	logger.Info("environment ready")
	return environment, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (p *Provisioner) goos() string {
	if p.Locator.GOOS != "" {
		return p.Locator.GOOS
	}
	return runtime.GOOS
}

func (p *Provisioner) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now()
	}
	return clock.Real().Now()
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
