// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package uv locates and drives the uv Python package manager: it
// creates virtual environments and performs editable installs into
// them.
package uv

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hostlaunch/hostlaunch/lib/toolpath"
)

// Find resolves the uv binary. A non-empty override (UV_PATH or the
// environment.uv setting) must name an executable regular file and is
// used as is. Otherwise uv is searched on the locator's search path and
// then at the bundled locations next to the launcher.
func Find(override string, locator toolpath.Locator) (string, error) {
	if override != "" {
		if err := toolpath.CheckExecutable(override, locator.GOOS); err != nil {
			return "", fmt.Errorf("uv override: %w", err)
		}
		return override, nil
	}
	return locator.Find("uv")
}

// BinDir returns the directory of an environment that holds its
// executables: Scripts on Windows, bin elsewhere.
func BinDir(envDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(envDir, "Scripts")
	}
	return filepath.Join(envDir, "bin")
}

// Client runs uv commands.
type Client struct {
	// Binary is the resolved uv path.
	Binary string

	// Environ is the base environment for uv. VIRTUAL_ENV and PATH are
	// replaced per call.
	Environ []string

	// SearchPath is the PATH value the environment's bin directory is
	// prepended to.
	SearchPath string

	// GOOS selects path conventions. Empty means the host OS.
	GOOS string
}

// CreateEnvironment runs "uv venv <envDir>" with PATH set to the
// search path, where uv discovers Python interpreters. On failure the
// returned diagnostic is uv's stderr, unmodified.
func (c Client) CreateEnvironment(ctx context.Context, envDir string) (string, error) {
	environ := c.Environ
	if c.SearchPath != "" {
		environ = append(c.without("PATH"), "PATH="+c.SearchPath)
	}
	return c.run(ctx, []string{"venv", envDir}, environ)
}

// InstallEditable runs "uv pip install -e <projectDir>" with the
// environment activated: VIRTUAL_ENV points at envDir and its bin
// directory leads PATH.
func (c Client) InstallEditable(ctx context.Context, envDir, projectDir string) (string, error) {
	return c.run(ctx, []string{"pip", "install", "-e", projectDir}, c.ActivatedEnviron(envDir))
}

// Version returns uv's self-reported version.
func (c Client) Version(ctx context.Context) (string, error) {
	stdout, _, err := toolpath.Command{Path: c.Binary, Args: []string{"--version"}, Env: c.Environ}.Output(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// ActivatedEnviron returns the base environment with envDir activated.
func (c Client) ActivatedEnviron(envDir string) []string {
	separator := ":"
	if c.GOOS == "windows" {
		separator = ";"
	}
	searchPath := BinDir(envDir, c.GOOS)
	if c.SearchPath != "" {
		searchPath += separator + c.SearchPath
	}
	return append(c.without("PATH", "VIRTUAL_ENV"), "VIRTUAL_ENV="+envDir, "PATH="+searchPath)
}

// without copies the base environment minus the named variables.
// Names compare case-insensitively on Windows.
func (c Client) without(names ...string) []string {
	environ := make([]string, 0, len(c.Environ)+2)
	for _, entry := range c.Environ {
		name, _, _ := strings.Cut(entry, "=")
		if c.GOOS == "windows" {
			name = strings.ToUpper(name)
		}
		if !slices.Contains(names, name) {
			environ = append(environ, entry)
		}
	}
	return environ
}

func (c Client) run(ctx context.Context, args []string, environ []string) (string, error) {
	_, diagnostic, err := toolpath.Command{Path: c.Binary, Args: args, Env: environ}.Output(ctx)
	if err != nil {
		return diagnostic, err
	}
	return "", nil
}
