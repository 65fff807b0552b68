// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hostlaunch/hostlaunch/lib/testutil"
)

// writeEntryPoint creates a shell script entry point. Tests using it
// are skipped on Windows.
func writeEntryPoint(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("entry point fixtures are shell scripts")
	}
	testutil.RequireBinary(t, "sh")
	path := filepath.Join(t.TempDir(), "bin", "app")
	testutil.WriteExecutable(t, path, "#!/bin/sh\n"+body)
	return path
}

func invocation(t *testing.T, entryPoint string) Invocation {
	return Invocation{
		EntryPoint: entryPoint,
		Name:       "app",
		Arguments: ArgumentSet{
			Descriptor: "/cache/descriptor.xml",
			HostName:   "lab1",
			LogDir:     filepath.Join(t.TempDir(), "logs"),
			Credential: "s3cret",
		},
	}
}

func TestRun_SuccessWritesLog(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "echo \"args: $*\"\necho oops >&2\nexit 0\n")
	var logs bytes.Buffer
	runner := &Runner{Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	result := runner.Run(context.Background(), invocation(t, entryPoint))
	if result.ExitCode != 0 || result.Err != nil {
		t.Fatalf("Result = %+v, want success", result)
	}
	if filepath.Base(result.LogFile) != "app_subprocess_lab1.log" {
		t.Errorf("LogFile = %q", result.LogFile)
	}
	content, err := os.ReadFile(result.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "args: --xml /cache/descriptor.xml --hostname lab1 --log_dir " + filepath.Dir(result.LogFile) + " --password s3cret\noops\n"
	if string(content) != want {
		t.Errorf("log content = %q, want %q", content, want)
	}
	if strings.Contains(logs.String(), "s3cret") {
		t.Error("launcher log contains the credential")
	}
	if !strings.Contains(logs.String(), "[REDACTED]") {
		t.Error("launcher log lacks the redacted argument vector")
	}
}

func TestRun_MirrorsExitCode(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "exit 7\n")
	result := (&Runner{}).Run(context.Background(), invocation(t, entryPoint))
	if result.ExitCode != 7 || result.Err != nil {
		t.Errorf("Result = %+v, want exit 7 with no start error", result)
	}
}

func TestRun_SignalMapsTo128Plus(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "kill -TERM $$\nsleep 5\n")
	result := (&Runner{}).Run(context.Background(), invocation(t, entryPoint))
	if result.ExitCode != 128+15 {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, 128+15)
	}
}

func TestRun_TruncatesPreviousLog(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "echo second\n")
	inv := invocation(t, entryPoint)
	logPath := filepath.Join(inv.Arguments.LogDir, LogFileName("app", "lab1"))
	testutil.WriteFile(t, logPath, "first run output that is long\n")

	result := (&Runner{}).Run(context.Background(), inv)
	content, err := os.ReadFile(result.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "second\n" {
		t.Errorf("log content = %q, want only the new run", content)
	}
}

func TestRun_ArchivesPreviousLog(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "echo second\n")
	inv := invocation(t, entryPoint)
	inv.ArchivePrevious = true
	logPath := filepath.Join(inv.Arguments.LogDir, LogFileName("app", "lab1"))
	testutil.WriteFile(t, logPath, "first\n")

	result := (&Runner{}).Run(context.Background(), inv)
	if result.Archive == "" {
		t.Fatal("no archive reported")
	}
	previous, err := ReadArchive(result.Archive)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if string(previous) != "first\n" {
		t.Errorf("archived content = %q", previous)
	}
}

func TestRun_EntryPointMissing(t *testing.T) {
	t.Parallel()

	inv := invocation(t, filepath.Join(t.TempDir(), "bin", "app"))
	result := (&Runner{}).Run(context.Background(), inv)
	if result.ExitCode != ExitEntryPointMissing || !errors.Is(result.Err, ErrEntryPointMissing) {
		t.Errorf("Result = %+v, want entry point missing", result)
	}
	if _, err := os.Stat(inv.Arguments.LogDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("log directory created although nothing ran: %v", err)
	}
}

func TestRun_StartFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX exec semantics")
	}
	t.Parallel()

	// A regular file without execute permission exists but cannot start.
	entryPoint := filepath.Join(t.TempDir(), "app")
	testutil.WriteFile(t, entryPoint, "not executable")

	result := (&Runner{}).Run(context.Background(), invocation(t, entryPoint))
	if result.ExitCode != ExitStartFailed || result.Err == nil {
		t.Errorf("Result = %+v, want start failure", result)
	}
}

func TestRun_LogDirectoryUnusable(t *testing.T) {
	t.Parallel()

	entryPoint := writeEntryPoint(t, "exit 0\n")
	inv := invocation(t, entryPoint)
	blocker := filepath.Join(t.TempDir(), "file")
	testutil.WriteFile(t, blocker, "")
	inv.Arguments.LogDir = filepath.Join(blocker, "logs")

	result := (&Runner{}).Run(context.Background(), inv)
	if result.ExitCode != ExitStartFailed {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, ExitStartFailed)
	}
}
