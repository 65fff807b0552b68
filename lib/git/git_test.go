// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostlaunch/hostlaunch/lib/testutil"
)

func TestClone_FetchCheckout(t *testing.T) {
	t.Parallel()

	origin := testutil.NewOrigin(t)
	first := origin.Commit("first", map[string]string{"README": "one\n"})
	origin.Tag("v1.0")

	clonePath := filepath.Join(t.TempDir(), "clone")
	repo, err := Clone(context.Background(), "", origin.Dir, clonePath)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if repo.Dir() != clonePath {
		t.Errorf("Dir() = %q, want %q", repo.Dir(), clonePath)
	}

	second := origin.Commit("second", map[string]string{"README": "two\n"})
	origin.Tag("v2.0")

	if err := repo.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for version, want := range map[string]string{"v1.0": first, "v2.0": second} {
		if err := repo.Checkout(context.Background(), version); err != nil {
			t.Fatalf("Checkout(%s): %v", version, err)
		}
		head, err := repo.HeadCommit(context.Background())
		if err != nil {
			t.Fatalf("HeadCommit: %v", err)
		}
		if head != want {
			t.Errorf("HEAD after checkout %s = %s, want %s", version, head, want)
		}
	}
}

func TestCheckout_RevisionIsNeverAnOption(t *testing.T) {
	t.Parallel()

	origin := testutil.NewOrigin(t)
	first := origin.Commit("first", nil)
	origin.Tag("v1.0")
	repo, err := Clone(context.Background(), "", origin.Dir, filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if err := repo.Checkout(context.Background(), "v1.0"); err != nil {
		t.Fatalf("Checkout(v1.0): %v", err)
	}

	for _, revision := range []string{"--detach", "--orphan=evil", "-f"} {
		err := repo.Checkout(context.Background(), revision)
		var commandError *CommandError
		if !errors.As(err, &commandError) {
			t.Errorf("Checkout(%q) error = %v, want *CommandError", revision, err)
		}
	}
	head, err := repo.HeadCommit(context.Background())
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if head != first {
		t.Errorf("HEAD = %s, want %s unchanged", head, first)
	}
}

func TestFetch_ForceUpdatesMovedTag(t *testing.T) {
	t.Parallel()

	origin := testutil.NewOrigin(t)
	origin.Commit("first", nil)
	origin.Tag("release")

	repo, err := Clone(context.Background(), "", origin.Dir, filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	moved := origin.Commit("second", nil)
	origin.Tag("release")

	if err := repo.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := repo.Checkout(context.Background(), "release"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if head, _ := repo.HeadCommit(context.Background()); head != moved {
		t.Errorf("HEAD = %s, want moved tag target %s", head, moved)
	}
}

func TestCheckout_UnknownRevision(t *testing.T) {
	t.Parallel()

	origin := testutil.NewOrigin(t)
	origin.Commit("first", nil)

	repo, err := Clone(context.Background(), "", origin.Dir, filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	err = repo.Checkout(context.Background(), "v9.9.9")
	var commandError *CommandError
	if !errors.As(err, &commandError) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if !strings.Contains(commandError.Stderr, "v9.9.9") {
		t.Errorf("Stderr = %q, want git's diagnostic naming the revision", commandError.Stderr)
	}
	if commandError.Dir != repo.Dir() {
		t.Errorf("Dir = %q, want %q", commandError.Dir, repo.Dir())
	}
	var exitError *exec.ExitError
	if !errors.As(err, &exitError) {
		t.Errorf("error chain lacks *exec.ExitError: %v", err)
	}
}

func TestClone_BadURL(t *testing.T) {
	t.Parallel()
	testutil.RequireBinary(t, "git")

	_, err := Clone(context.Background(), "", filepath.Join(t.TempDir(), "no-such-origin"), filepath.Join(t.TempDir(), "clone"))
	var commandError *CommandError
	if !errors.As(err, &commandError) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if commandError.Dir != "" || commandError.Args[0] != "clone" {
		t.Errorf("CommandError = %+v, want a clone without -C", commandError)
	}
	if strings.TrimSpace(commandError.Stderr) == "" {
		t.Error("expected git's stderr in the error")
	}
}

func TestRepository_Run_NonexistentDirectory(t *testing.T) {
	t.Parallel()
	testutil.RequireBinary(t, "git")

	repo := NewRepository(filepath.Join(t.TempDir(), "absent"))
	if _, err := repo.Run(context.Background(), "status"); err == nil {
		t.Fatal("expected error for nonexistent directory")
	}
}

func TestRepository_WithBinaryKeepsOriginal(t *testing.T) {
	t.Parallel()

	repo := NewRepository("/path/to/clone")
	other := repo.WithBinary("/usr/local/bin/git")
	if repo.binary != DefaultBinary {
		t.Errorf("original binary changed to %q", repo.binary)
	}
	if other.Dir() != "/path/to/clone" || other.binary != "/usr/local/bin/git" {
		t.Errorf("WithBinary = %+v", other)
	}
	if same := repo.WithBinary(""); same.binary != DefaultBinary {
		t.Errorf("WithBinary(\"\") binary = %q", same.binary)
	}
}

func TestCommandError_Message(t *testing.T) {
	t.Parallel()

	err := &CommandError{
		Args:   []string{"checkout", "--quiet", "v2"},
		Dir:    "/cache/App",
		Stderr: "error: pathspec 'v2' did not match\n",
		Err:    errors.New("exit status 1"),
	}
	want := "git checkout --quiet v2 in /cache/App: exit status 1 (stderr: error: pathspec 'v2' did not match)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
