// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireBinary returns the path of name on PATH, or skips the test
// when it is not installed.
func RequireBinary(t testing.TB, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

// Origin is a throwaway upstream repository that tests clone from.
type Origin struct {
	Dir string
	t   testing.TB
}

// NewOrigin initializes an empty repository in a temporary directory.
// The test is skipped when git is not installed.
func NewOrigin(t testing.TB) *Origin {
	t.Helper()
	RequireBinary(t, "git")
	origin := &Origin{Dir: filepath.Join(t.TempDir(), "origin"), t: t}
	runGit(t, "", "init", "--quiet", origin.Dir)
	return origin
}

// Git runs a git command in the origin and returns trimmed stdout.
// Commits and tags are created with a fixed identity and signing
// disabled so the user's global configuration cannot interfere.
func (o *Origin) Git(args ...string) string {
	o.t.Helper()
	return runGit(o.t, o.Dir, args...)
}

// Commit writes files (paths relative to the origin, slash-separated)
// and commits everything. It returns the new commit hash.
func (o *Origin) Commit(message string, files map[string]string) string {
	o.t.Helper()
	for name, content := range files {
		WriteFile(o.t, filepath.Join(o.Dir, filepath.FromSlash(name)), content)
	}
	o.Git("add", "--all")
	o.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return o.Git("rev-parse", "HEAD")
}

// Tag points a lightweight tag at HEAD, moving it if it exists.
func (o *Origin) Tag(name string) {
	o.t.Helper()
	o.Git("tag", "--force", name)
}

func runGit(t testing.TB, dir string, args ...string) string {
	t.Helper()
	fullArgs := []string{
		"-c", "user.name=Test",
		"-c", "user.email=test@test.local",
		"-c", "commit.gpgsign=false",
		"-c", "tag.gpgsign=false",
	}
	if dir != "" {
		fullArgs = append(fullArgs, "-C", dir)
	}
	command := exec.Command("git", append(fullArgs, args...)...)
	output, err := command.Output()
	if err != nil {
		stderr := ""
		if exitError, ok := err.(*exec.ExitError); ok {
			stderr = string(exitError.Stderr)
		}
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, stderr)
	}
	return strings.TrimSpace(string(output))
}

// WriteFile creates parent directories and writes content to path.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// WriteExecutable writes content to path with execute permission.
func WriteExecutable(t testing.TB, path, content string) {
	t.Helper()
	WriteFile(t, path, content)
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
}
