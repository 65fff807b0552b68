// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/hostlaunch/hostlaunch/lib/cache"
)

const (
	// EnvironmentVariable names the configuration file when --config
	// is not given.
	EnvironmentVariable = "HOSTLAUNCH_CONFIG"

	// UVEnvironmentVariable overrides the uv binary location.
	UVEnvironmentVariable = "UV_PATH"

	// DefaultFileName is the configuration file looked for next to
	// the executable.
	DefaultFileName = "launcher.ini"
)

// Options carries everything Resolve needs from the process. Tests
// construct it directly; main builds it from os.Getenv and
// os.Executable.
type Options struct {
	// ConfigPath is the --config flag value, if given.
	ConfigPath string

	// Getenv looks up environment variables. Nil means none are set.
	Getenv func(string) string

	// Executable is the launcher binary path.
	Executable string

	// GOOS selects platform conventions for the cache directory.
	GOOS string

	// UserCacheDir and UserHomeDir feed cache directory resolution.
	UserCacheDir func() (string, error)
	UserHomeDir  func() (string, error)
}

func (o Options) getenv(name string) string {
	if o.Getenv == nil {
		return ""
	}
	return o.Getenv(name)
}

// Locate returns the configuration file path: the explicit path, then
// HOSTLAUNCH_CONFIG, then the first existing of
// <exe dir>/../config/launcher.ini and <exe dir>/config/launcher.ini.
// When neither exists the former is returned so the error names the
// primary location.
func Locate(options Options) (string, error) {
	if options.ConfigPath != "" {
		return options.ConfigPath, nil
	}
	if fromEnvironment := options.getenv(EnvironmentVariable); fromEnvironment != "" {
		return fromEnvironment, nil
	}
	if options.Executable == "" {
		return "", fmt.Errorf("no configuration file: pass --config or set %s", EnvironmentVariable)
	}

	executableDir := filepath.Dir(options.Executable)
	candidates := []string{
		filepath.Join(executableDir, "..", "config", DefaultFileName),
		filepath.Join(executableDir, "config", DefaultFileName),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return candidates[0], nil
}

// Resolve locates and loads the configuration file, then applies the
// process environment: the cache directory, UV_PATH, PATH,
// SSH_AUTH_SOCK, and ${VAR} expansion. The result is not validated;
// call Validate.
func Resolve(options Options) (*Config, error) {
	path, err := Locate(options)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.CacheDir = cache.Resolve(cache.Resolver{
		Getenv:       options.Getenv,
		GOOS:         options.GOOS,
		UserCacheDir: options.UserCacheDir,
		UserHomeDir:  options.UserHomeDir,
	})
	cfg.UVOverride = options.getenv(UVEnvironmentVariable)
	cfg.Executable = options.Executable
	cfg.SearchPath = options.getenv("PATH")
	cfg.SFTP.AgentSocket = options.getenv("SSH_AUTH_SOCK")

	vars := map[string]string{
		cache.EnvironmentVariable: cfg.CacheDir,
		"HOSTLAUNCH_CONFIG_DIR":   filepath.Dir(path),
	}
	if options.UserHomeDir != nil {
		if home, err := options.UserHomeDir(); err == nil {
			vars["HOME"] = home
		}
	}
	cfg.expandVariables(vars, options.getenv)
	cfg.applyDerivedDefaults()

	return cfg, nil
}

// LoadFile parses a configuration file over Default. It performs no
// environment lookups and no variable expansion.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	format := formatFor(path)
	if format == "jsonc" {
		data = jsonc.ToJSON(data)
		format = "json"
	}

	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if !v.IsSet("config") {
		return fmt.Errorf("config file %s has no [config] section", path)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// formatFor maps a file extension to a viper config type. Anything
// unrecognized is read as INI.
func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".jsonc":
		return "jsonc"
	default:
		return "ini"
	}
}

// IsNotFound reports whether err means the configuration file does not
// exist.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
