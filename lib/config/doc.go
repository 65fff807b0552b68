// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the launcher configuration.
//
// The configuration is a single file, normally an INI file named
// launcher.ini, with a required [config] section and optional
// [pipeline], [environment], [s3], and [sftp] sections. YAML, JSON,
// and JSONC (JSON with comments) files with the same structure are
// accepted, selected by file extension.
//
// [Resolve] is the only place in hostlaunch that reads the process
// environment. It locates the file (explicit path, then
// HOSTLAUNCH_CONFIG, then config/launcher.ini next to the executable),
// loads it over [Default], expands ${VAR} and ${VAR:-default} patterns
// in path fields, records HOSTLAUNCH_CACHE_DIR and UV_PATH, and fills
// derived defaults. Everything downstream receives the returned
// [Config] and treats it as immutable.
//
// Key exports:
//
//   - [Config] -- Launcher, Pipeline, Environment, S3, and SFTP sections
//   - [Resolve] -- locate, load, expand, and default in one step
//   - [LoadFile] -- parse a single file without environment lookups
//   - [Config.Validate] -- aggregate every problem with errors.Join
//   - [Config.Credential] -- the entry point credential in a secret.Buffer
package config
