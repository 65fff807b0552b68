// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/testutil"
)

func TestTryAcquire_Exclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache", "hostlaunch.lock")

	first, acquired, err := TryAcquire(path)
	if err != nil || !acquired {
		t.Fatalf("first TryAcquire = %v, %v", acquired, err)
	}
	if first.Path() != path {
		t.Errorf("Path() = %q, want %q", first.Path(), path)
	}

	second, acquired, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("second TryAcquire error: %v", err)
	}
	if acquired {
		second.Release()
		t.Fatal("second TryAcquire succeeded while the lock was held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	third, acquired, err := TryAcquire(path)
	if err != nil || !acquired {
		t.Fatalf("TryAcquire after release = %v, %v", acquired, err)
	}
	third.Release()
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hostlaunch.lock")
	held, _, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}

	waited := make(chan struct{})
	acquired := make(chan error, 1)
	go func() {
		lock, err := Acquire(context.Background(), path, 10*time.Millisecond, func() { close(waited) })
		if err == nil {
			lock.Release()
		}
		acquired <- err
	}()

	testutil.RequireClosed(t, waited, 10*time.Second, "waiting for Acquire to block")
	held.Release()
	if err := testutil.RequireReceive(t, acquired, 10*time.Second, "waiting for Acquire"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hostlaunch.lock")
	held, _, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := Acquire(ctx, path, 10*time.Millisecond, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire error = %v, want deadline exceeded", err)
	}
}

func TestRelease_Nil(t *testing.T) {
	t.Parallel()

	var lock *Lock
	if err := lock.Release(); err != nil {
		t.Errorf("nil Release = %v", err)
	}
}
