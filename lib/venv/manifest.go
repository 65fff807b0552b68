// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/codec"
)

// ManifestFile is the name of the build record inside an environment
// directory.
const ManifestFile = "hostlaunch-env.cbor"

// Manifest records how an environment was built.
type Manifest struct {
	Version  string    `cbor:"version"`
	Commit   string    `cbor:"commit"`
	RepoPath string    `cbor:"repo_path"`
	UV       string    `cbor:"uv"`
	BuiltAt  time.Time `cbor:"built_at"`

	// UVVersion is what "uv --version" printed, empty if it failed.
	UVVersion string `cbor:"uv_version,omitempty"`
}

// ReadManifest loads the manifest from envDir.
func ReadManifest(envDir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(envDir, ManifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := codec.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decoding %s: %w", ManifestFile, err)
	}
	return manifest, nil
}

// WriteManifest stores manifest in envDir, replacing any previous one
// atomically.
func WriteManifest(envDir string, manifest Manifest) error {
	data, err := codec.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(envDir, ManifestFile)
	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return err
	}
	return nil
}
