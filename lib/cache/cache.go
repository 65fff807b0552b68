// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvironmentVariable overrides the cache directory when set.
const EnvironmentVariable = "HOSTLAUNCH_CACHE_DIR"

const (
	// appName is the directory the launcher owns inside the platform
	// cache directory.
	appName = "hostlaunch"

	// appAuthor is the vendor component used on Windows and in the
	// home-directory fallback.
	appAuthor = "Hostlaunch"

	// relativeFallback is used when neither a cache directory nor a
	// home directory can be determined.
	relativeFallback = ".hostlaunch-cache"
)

// Resolver carries the process facts Resolve consults. Every field is
// injectable so tests can exercise each platform's precedence without
// touching the real environment.
type Resolver struct {
	// Getenv looks up environment variables. Nil means no variables
	// are set.
	Getenv func(string) string

	// GOOS selects platform conventions. Defaults to "linux" when
	// empty.
	GOOS string

	// UserCacheDir returns the platform cache directory
	// (os.UserCacheDir semantics).
	UserCacheDir func() (string, error)

	// UserHomeDir returns the home directory (os.UserHomeDir
	// semantics).
	UserHomeDir func() (string, error)
}

// SystemResolver returns a Resolver backed by the real process
// environment. Only the configuration layer should call this.
func SystemResolver(goos string) Resolver {
	return Resolver{
		Getenv:       os.Getenv,
		GOOS:         goos,
		UserCacheDir: os.UserCacheDir,
		UserHomeDir:  os.UserHomeDir,
	}
}

// Resolve returns the cache directory path:
//
//  1. HOSTLAUNCH_CACHE_DIR, verbatim, when non-empty.
//  2. The platform cache directory, namespaced: <cache>/hostlaunch on
//     Unix, <LocalAppData>\Hostlaunch\hostlaunch\Cache on Windows.
//  3. A fallback under the home directory: ~/.cache/hostlaunch/Hostlaunch
//     on Unix, %LOCALAPPDATA%\hostlaunch\Hostlaunch or
//     ~\hostlaunch\Hostlaunch on Windows.
//  4. The relative directory .hostlaunch-cache.
//
// Resolve never fails and creates nothing.
func Resolve(resolver Resolver) string {
	getenv := resolver.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	windows := resolver.GOOS == "windows"

	if override := getenv(EnvironmentVariable); override != "" {
		return override
	}

	if resolver.UserCacheDir != nil {
		if base, err := resolver.UserCacheDir(); err == nil && base != "" {
			if windows {
				return joinFor(windows, base, appAuthor, appName, "Cache")
			}
			return joinFor(windows, base, appName)
		}
	}

	if windows {
		if localAppData := getenv("LOCALAPPDATA"); localAppData != "" {
			return joinFor(windows, localAppData, appName, appAuthor)
		}
	}

	if resolver.UserHomeDir != nil {
		if home, err := resolver.UserHomeDir(); err == nil && home != "" {
			if windows {
				return joinFor(windows, home, appName, appAuthor)
			}
			return joinFor(windows, home, ".cache", appName, appAuthor)
		}
	}

	return relativeFallback
}

// joinFor joins path elements with the separator of the target
// platform rather than the host's, so Windows layouts can be computed
// (and tested) on any OS.
func joinFor(windows bool, elements ...string) string {
	if !windows {
		return filepath.Join(elements...)
	}
	trimmed := make([]string, 0, len(elements))
	for index, element := range elements {
		if index > 0 {
			element = strings.Trim(element, `\/`)
		} else {
			element = strings.TrimRight(element, `\/`)
		}
		if element != "" {
			trimmed = append(trimmed, element)
		}
	}
	return strings.Join(trimmed, `\`)
}

// Layout names the files and directories inside a cache root.
type Layout struct {
	Root string
}

// Ensure creates the cache root (and parents) if missing.
func (l Layout) Ensure() error {
	if l.Root == "" {
		return fmt.Errorf("cache directory is empty")
	}
	if err := os.MkdirAll(l.Root, 0755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", l.Root, err)
	}
	return nil
}

// DescriptorCache is the fixed location of the last good descriptor.
func (l Layout) DescriptorCache() string {
	return filepath.Join(l.Root, "descriptor.xml")
}

// SchemaCache is the fixed location of the last good schema.
func (l Layout) SchemaCache() string {
	return filepath.Join(l.Root, "descriptor.xsd")
}

// Clone is the directory of the shared clone of repository.
func (l Layout) Clone(repository string) string {
	return filepath.Join(l.Root, repository)
}

// Environment is the directory of the environment built for version.
func (l Layout) Environment(repository, version string) string {
	return filepath.Join(l.Root, repository+"-venv-"+SanitizeVersion(version))
}

// LockFile is the advisory lock serializing provisioning.
func (l Layout) LockFile() string {
	return filepath.Join(l.Root, "hostlaunch.lock")
}

// HistoryDB is the SQLite run history database.
func (l Layout) HistoryDB() string {
	return filepath.Join(l.Root, "history.db")
}

// SanitizeVersion maps a version string to a single path component,
// one-to-one. Bytes outside [A-Za-z0-9.+-] are written as '_' followed
// by two upper-case hex digits, '_' included, so "release/2.1" and
// "release_2.1" land in different directories and no version can
// escape the cache root. A dot-only version has its dots escaped and
// the empty version maps to "_".
func SanitizeVersion(version string) string {
	if version == "" {
		return "_"
	}
	dotsOnly := strings.Trim(version, ".") == ""
	var builder strings.Builder
	for i := 0; i < len(version); i++ {
		c := version[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			builder.WriteByte(c)
		case c == '-', c == '+':
			builder.WriteByte(c)
		case c == '.' && !dotsOnly:
			builder.WriteByte(c)
		default:
			fmt.Fprintf(&builder, "_%02X", c)
		}
	}
	return builder.String()
}
