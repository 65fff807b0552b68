// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Validator engines accepted by pipeline.validator.
const (
	ValidatorBuiltin = "builtin"
	ValidatorXmllint = "xmllint"
)

// Config is the resolved launcher configuration.
type Config struct {
	// Launcher is the [config] section: what to run and where.
	Launcher LauncherConfig `mapstructure:"config"`

	// Pipeline toggles the optional pipeline stages.
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Environment controls how the Python environment is built.
	Environment EnvironmentConfig `mapstructure:"environment"`

	// S3 configures s3:// descriptor locations.
	S3 S3Config `mapstructure:"s3"`

	// SFTP configures sftp:// descriptor locations.
	SFTP SFTPConfig `mapstructure:"sftp"`

	// The fields below are not read from the file. Resolve fills them
	// from the process environment and the executable location.

	// Path is the configuration file that was loaded.
	Path string `mapstructure:"-"`

	// CacheDir is the resolved cache directory.
	CacheDir string `mapstructure:"-"`

	// UVOverride is the value of UV_PATH, if set. It takes precedence
	// over Environment.UV.
	UVOverride string `mapstructure:"-"`

	// Executable is the launcher binary path, used to find bundled
	// tools next to it.
	Executable string `mapstructure:"-"`

	// SearchPath is the PATH used to locate git, uv, and xmllint.
	SearchPath string `mapstructure:"-"`
}

// LauncherConfig is the [config] section.
type LauncherConfig struct {
	// RepoURL is the git URL of the repository providing the entry
	// point.
	RepoURL string `mapstructure:"repo_url"`

	// Descriptor is a local path or an http, https, ftp, sftp, or s3
	// URL of the XML deployment descriptor.
	Descriptor string `mapstructure:"descriptor"`

	// Schema is an optional local path or URL of an XSD the
	// descriptor is validated against.
	Schema string `mapstructure:"schema"`

	// HostName selects the <host> record in the descriptor.
	HostName string `mapstructure:"host_name"`

	// LogDir receives the launcher log and the entry point's log.
	// Defaults to the cache directory.
	LogDir string `mapstructure:"log_dir"`

	// Password is a plain-text credential passed to the entry point.
	Password string `mapstructure:"password"`

	// PasswordFile is a file holding the credential.
	PasswordFile string `mapstructure:"password_file"`

	// SealedPassword is a base64 age ciphertext of the credential,
	// opened with IdentityFile.
	SealedPassword string `mapstructure:"sealed_password"`

	// IdentityFile is an age identity file for SealedPassword.
	IdentityFile string `mapstructure:"identity_file"`
}

// PipelineConfig is the [pipeline] section.
type PipelineConfig struct {
	// Run executes the entry point after provisioning. False means
	// provision only.
	Run bool `mapstructure:"run"`

	// Lock serializes provisioning across concurrent launcher runs.
	Lock bool `mapstructure:"lock"`

	// History records each run in the cache's history database.
	History bool `mapstructure:"history"`

	// ArchiveLogs compresses the previous entry point log before it is
	// truncated.
	ArchiveLogs bool `mapstructure:"archive_logs"`

	// Validator selects the schema validation engine: "builtin" or
	// "xmllint".
	Validator string `mapstructure:"validator"`

	// FetchTimeout bounds each remote descriptor or schema download.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// TraceFile, when set, receives OpenTelemetry spans as JSON.
	TraceFile string `mapstructure:"trace_file"`

	// MetricsFile, when set, receives Prometheus text-format metrics
	// for the run.
	MetricsFile string `mapstructure:"metrics_file"`
}

// EnvironmentConfig is the [environment] section.
type EnvironmentConfig struct {
	// EntryPoint is the console script installed by the repository's
	// package. Defaults to the lower-cased repository name.
	EntryPoint string `mapstructure:"entry_point"`

	// RebuildOnCommitChange rebuilds an existing environment when the
	// checkout's commit differs from the one it was built from.
	RebuildOnCommitChange bool `mapstructure:"rebuild_on_commit_change"`

	// UV is an explicit path to the uv binary.
	UV string `mapstructure:"uv"`
}

// S3Config is the [s3] section.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// SFTPConfig is the [sftp] section.
type SFTPConfig struct {
	// KnownHosts is an OpenSSH known_hosts file. Required for sftp://
	// locations; host keys are never accepted blindly.
	KnownHosts string `mapstructure:"known_hosts"`

	// IdentityFile is an unencrypted OpenSSH private key.
	IdentityFile string `mapstructure:"identity_file"`

	// AgentSocket is SSH_AUTH_SOCK at resolve time.
	AgentSocket string `mapstructure:"-"`
}

// Default returns a Config with every default applied except those
// derived from other fields (see Resolve).
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Run:          true,
			Lock:         true,
			History:      true,
			Validator:    ValidatorBuiltin,
			FetchTimeout: 60 * time.Second,
		},
		S3: S3Config{
			Endpoint: "s3.amazonaws.com",
			Secure:   true,
		},
	}
}

// RepositoryName returns the last path component of RepoURL without a
// trailing ".git". It names the clone directory and the environment
// directories. Both URL and scp-like ("git@host:org/Repo.git") forms
// are understood.
func (c *Config) RepositoryName() string {
	return RepositoryName(c.Launcher.RepoURL)
}

// RepositoryName derives a repository name from a git URL or path.
func RepositoryName(repoURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), `/\`)
	// Single-letter schemes are Windows drive letters, not URLs.
	if parsed, err := url.Parse(trimmed); err == nil && len(parsed.Scheme) > 1 {
		trimmed = strings.TrimRight(parsed.Path, "/")
	}
	if index := strings.LastIndexAny(trimmed, `/\:`); index >= 0 {
		trimmed = trimmed[index+1:]
	}
	trimmed = strings.TrimSuffix(trimmed, ".git")
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return ""
	}
	return trimmed
}

// applyDerivedDefaults fills values that depend on other fields.
func (c *Config) applyDerivedDefaults() {
	if c.Launcher.LogDir == "" {
		c.Launcher.LogDir = c.CacheDir
	}
	if c.Environment.EntryPoint == "" {
		c.Environment.EntryPoint = strings.ToLower(c.RepositoryName())
	}
	if c.Pipeline.Validator == "" {
		c.Pipeline.Validator = ValidatorBuiltin
	}
}

// Validate checks the configuration for errors, reporting every
// problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Launcher.RepoURL == "" {
		errs = append(errs, fmt.Errorf("config.repo_url is required"))
	} else if c.RepositoryName() == "" {
		errs = append(errs, fmt.Errorf("config.repo_url %q does not name a repository", c.Launcher.RepoURL))
	}
	if c.Launcher.Descriptor == "" {
		errs = append(errs, fmt.Errorf("config.descriptor is required"))
	}
	if c.Launcher.HostName == "" {
		errs = append(errs, fmt.Errorf("config.host_name is required"))
	}

	sources := 0
	for _, value := range []string{c.Launcher.Password, c.Launcher.PasswordFile, c.Launcher.SealedPassword} {
		if value != "" {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, fmt.Errorf("at most one of config.password, config.password_file, config.sealed_password may be set"))
	}
	if c.Launcher.SealedPassword != "" && c.Launcher.IdentityFile == "" {
		errs = append(errs, fmt.Errorf("config.sealed_password requires config.identity_file"))
	}

	validators := []string{ValidatorBuiltin, ValidatorXmllint}
	if !slices.Contains(validators, c.Pipeline.Validator) {
		errs = append(errs, fmt.Errorf("pipeline.validator must be one of: %v", validators))
	}
	if c.Pipeline.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.fetch_timeout must be positive, got %s", c.Pipeline.FetchTimeout))
	}

	if strings.ContainsAny(c.Environment.EntryPoint, `/\`) {
		errs = append(errs, fmt.Errorf("environment.entry_point must be a bare name, got %q", c.Environment.EntryPoint))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-like fields. vars holds the launcher-provided names; lookup
// resolves everything else.
func (c *Config) expandVariables(vars map[string]string, lookup func(string) string) {
	for _, field := range []*string{
		&c.Launcher.Descriptor,
		&c.Launcher.Schema,
		&c.Launcher.LogDir,
		&c.Launcher.PasswordFile,
		&c.Launcher.IdentityFile,
		&c.Pipeline.TraceFile,
		&c.Pipeline.MetricsFile,
		&c.Environment.UV,
		&c.S3.AccessKey,
		&c.S3.SecretKey,
		&c.SFTP.KnownHosts,
		&c.SFTP.IdentityFile,
	} {
		*field = expandVars(*field, vars, lookup)
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string, lookup func(string) string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Launcher-provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if lookup != nil {
			if value := lookup(name); value != "" {
				return value
			}
		}
		return defaultValue
	})
}
