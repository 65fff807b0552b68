// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockfile provides an advisory, exclusive, cross-process file
// lock: flock(2) on Unix and LockFileEx on Windows.
//
// The lock belongs to the open file, not the process, so two Lock
// values for the same path conflict even inside one process. The
// kernel drops it when the process exits, so a crashed launcher never
// leaves a stale lock behind. The lock file itself is never removed.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultPollInterval is how often Acquire retries a held lock.
const DefaultPollInterval = 250 * time.Millisecond

// errBusy is returned by the platform tryLock when another holder has
// the lock.
var errBusy = errors.New("lock is held by another process")

// Lock is a held lock. Release it exactly once.
type Lock struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock without waiting. It reports false (and no
// error) when another holder has it.
func TryAcquire(path string) (*Lock, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, false, fmt.Errorf("creating lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("opening lock file: %w", err)
	}

	if err := tryLock(file); err != nil {
		file.Close()
		if errors.Is(err, errBusy) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("locking %s: %w", path, err)
	}
	return &Lock{path: path, file: file}, true, nil
}

// Acquire takes the lock, retrying every poll interval until it is
// free or ctx is done. onWait, if non-nil, is called once when the
// first attempt finds the lock held.
func Acquire(ctx context.Context, path string, poll time.Duration, onWait func()) (*Lock, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	lock, acquired, err := TryAcquire(path)
	if err != nil {
		return nil, err
	}
	if acquired {
		return lock, nil
	}
	if onWait != nil {
		onWait()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
		lock, acquired, err := TryAcquire(path)
		if err != nil {
			return nil, err
		}
		if acquired {
			return lock, nil
		}
	}
}

// Release unlocks and closes the lock file. Release on a nil Lock is a
// no-op, so callers can defer it unconditionally.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}
	return closeErr
}
