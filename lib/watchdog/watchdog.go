// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/codec"
)

// State describes work that has started but not finished.
type State struct {
	// Operation names the work, e.g. "environment build".
	Operation string `cbor:"operation"`

	// Version and Commit identify what was being built.
	Version string `cbor:"version"`
	Commit  string `cbor:"commit,omitempty"`

	// PID is the process that wrote the state.
	PID int `cbor:"pid"`

	StartedAt time.Time `cbor:"started_at"`
}

// Write atomically stores state at path with mode 0600. The parent
// directory must already exist.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding watchdog state: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary watchdog file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary watchdog file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary watchdog file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary watchdog file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming watchdog file into place: %w", err)
	}

	// Make the rename durable across a power loss.
	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read loads the state at path. A missing file yields an error
// wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decoding watchdog file %s: %w", path, err)
	}
	return state, nil
}

// Check reports whether a state file exists at path. A missing file is
// (zero, false, nil). A file that exists but cannot be decoded is
// reported as present with the decode error, since its mere presence
// means the work was interrupted.
func Check(path string) (State, bool, error) {
	state, err := Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return State{}, true, err
		}
		return State{}, false, err
	}
	return state, true, nil
}

// Clear removes the state file. Removing a missing file is not an
// error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing watchdog file: %w", err)
	}
	return nil
}
