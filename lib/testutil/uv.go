// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeUVOptions controls the behaviour of a fake uv script.
type FakeUVOptions struct {
	// EntryPoint is the script name "pip install -e" creates in the
	// environment's bin directory.
	EntryPoint string

	// EntryScript is the body of that script. Empty installs a script
	// that prints its arguments and exits 0.
	EntryScript string

	// FailVenv makes "uv venv" print FailMessage to stderr and exit 1.
	FailVenv bool

	// FailInstall makes "uv pip install" print FailMessage to stderr
	// and exit 1.
	FailInstall bool

	FailMessage string
}

// FakeUV is a shell script standing in for uv. It understands
// "venv <dir>" and "pip install -e <path>", and appends every
// invocation to a log.
type FakeUV struct {
	Path string
	log  string
}

// NewFakeUV writes a fake uv into a temporary directory. Tests are
// skipped on Windows and where sh is missing.
func NewFakeUV(t testing.TB, options FakeUVOptions) *FakeUV {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake uv is a POSIX shell script")
	}
	RequireBinary(t, "sh")

	directory := t.TempDir()
	fake := &FakeUV{
		Path: filepath.Join(directory, "uv"),
		log:  filepath.Join(directory, "invocations.log"),
	}
	entryScript := options.EntryScript
	if entryScript == "" {
		entryScript = "#!/bin/sh\necho \"$0 $*\"\nexit 0\n"
	}
	entrySource := filepath.Join(directory, "entry-point")
	WriteExecutable(t, entrySource, entryScript)

	message := options.FailMessage
	if message == "" {
		message = "error: simulated uv failure"
	}

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	script.WriteString("if [ \"$1\" = --version ]; then echo 'uv 0.0.0-fake'; exit 0; fi\n")
	script.WriteString("echo \"$*\" >> " + shellQuote(fake.log) + "\n")
	script.WriteString("case \"$1\" in\n")
	script.WriteString("venv)\n")
	if options.FailVenv {
		script.WriteString("  echo " + shellQuote(message) + " >&2\n  exit 1\n")
	}
	script.WriteString("  mkdir -p \"$2/bin\" && echo 'home = /usr/bin' > \"$2/pyvenv.cfg\"\n  exit $?\n  ;;\n")
	script.WriteString("pip)\n")
	script.WriteString("  if [ \"$2\" != install ] || [ \"$3\" != -e ]; then echo \"unexpected pip arguments: $*\" >&2; exit 2; fi\n")
	script.WriteString("  if [ -z \"$VIRTUAL_ENV\" ]; then echo 'VIRTUAL_ENV is not set' >&2; exit 3; fi\n")
	if options.FailInstall {
		script.WriteString("  echo " + shellQuote(message) + " >&2\n  exit 1\n")
	}
	script.WriteString("  cp " + shellQuote(entrySource) + " \"$VIRTUAL_ENV/bin/" + options.EntryPoint + "\" && chmod +x \"$VIRTUAL_ENV/bin/" + options.EntryPoint + "\"\n  exit $?\n  ;;\n")
	script.WriteString("esac\necho \"unexpected uv arguments: $*\" >&2\nexit 2\n")

	WriteExecutable(t, fake.Path, script.String())
	return fake
}

// Invocations returns the argument lists uv was called with, one
// space-joined string per call.
func (f *FakeUV) Invocations(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(f.log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading uv invocation log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
