// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package uv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/hostlaunch/hostlaunch/lib/testutil"
	"github.com/hostlaunch/hostlaunch/lib/toolpath"
)

func TestFind_Override(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeUV(t, testutil.FakeUVOptions{EntryPoint: "app"})
	path, err := Find(fake.Path, toolpath.Locator{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if path != fake.Path {
		t.Errorf("Find = %q, want override %q", path, fake.Path)
	}
}

func TestFind_OverrideMustBeExecutable(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	plain := filepath.Join(directory, "uv")
	testutil.WriteFile(t, plain, "not a program")

	for _, override := range []string{plain, directory, filepath.Join(directory, "absent")} {
		if _, err := Find(override, toolpath.Locator{SearchPath: directory}); err == nil {
			t.Errorf("Find(%q) succeeded, want error", override)
		}
	}
}

func TestFind_SearchPath(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeUV(t, testutil.FakeUVOptions{EntryPoint: "app"})
	path, err := Find("", toolpath.Locator{SearchPath: filepath.Dir(fake.Path)})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if path != fake.Path {
		t.Errorf("Find = %q, want %q", path, fake.Path)
	}
}

func TestFind_NotFound(t *testing.T) {
	t.Parallel()

	_, err := Find("", toolpath.Locator{SearchPath: t.TempDir()})
	if !errors.Is(err, toolpath.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_CreateAndInstall(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeUV(t, testutil.FakeUVOptions{EntryPoint: "app"})
	client := Client{Binary: fake.Path, Environ: []string{"HOME=" + t.TempDir()}, SearchPath: "/usr/bin:/bin"}

	envDir := filepath.Join(t.TempDir(), "App-venv-1.0")
	if diagnostic, err := client.CreateEnvironment(context.Background(), envDir); err != nil {
		t.Fatalf("CreateEnvironment: %v (%s)", err, diagnostic)
	}
	if diagnostic, err := client.InstallEditable(context.Background(), envDir, "/src/App"); err != nil {
		t.Fatalf("InstallEditable: %v (%s)", err, diagnostic)
	}
	if _, err := os.Stat(filepath.Join(envDir, "bin", "app")); err != nil {
		t.Errorf("entry point not installed: %v", err)
	}

	want := []string{"venv " + envDir, "pip install -e /src/App"}
	if got := fake.Invocations(t); !slices.Equal(got, want) {
		t.Errorf("invocations = %q, want %q", got, want)
	}
}

func TestClient_Version(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeUV(t, testutil.FakeUVOptions{EntryPoint: "app"})
	version, err := Client{Binary: fake.Path}.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "uv 0.0.0-fake" {
		t.Errorf("Version = %q, want %q", version, "uv 0.0.0-fake")
	}
}

func TestClient_FailureReturnsStderr(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeUV(t, testutil.FakeUVOptions{
		EntryPoint:  "app",
		FailInstall: true,
		FailMessage: "error: No solution found when resolving dependencies",
	})
	client := Client{Binary: fake.Path, SearchPath: "/usr/bin:/bin"}
	envDir := filepath.Join(t.TempDir(), "env")

	diagnostic, err := client.InstallEditable(context.Background(), envDir, "/src/App")
	if err == nil {
		t.Fatal("expected install failure")
	}
	if diagnostic != "error: No solution found when resolving dependencies\n" {
		t.Errorf("diagnostic = %q", diagnostic)
	}
}

func TestClient_ActivatedEnviron(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client Client
		envDir string
		want   []string
	}{
		{
			name: "posix",
			client: Client{
				Environ:    []string{"HOME=/home/u", "PATH=/old", "VIRTUAL_ENV=/stale"},
				SearchPath: "/usr/bin:/bin",
				GOOS:       "linux",
			},
			envDir: "/cache/App-venv-1.0",
			want: []string{
				"HOME=/home/u",
				"VIRTUAL_ENV=/cache/App-venv-1.0",
				"PATH=" + filepath.Join("/cache/App-venv-1.0", "bin") + ":/usr/bin:/bin",
			},
		},
		{
			name: "windows",
			client: Client{
				Environ:    []string{"Path=C:\\old", "USERPROFILE=C:\\Users\\u"},
				SearchPath: `C:\Windows`,
				GOOS:       "windows",
			},
			envDir: `C:\cache\env`,
			want: []string{
				`USERPROFILE=C:\Users\u`,
				`VIRTUAL_ENV=C:\cache\env`,
				"PATH=" + filepath.Join(`C:\cache\env`, "Scripts") + `;C:\Windows`,
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := test.client.ActivatedEnviron(test.envDir)
			if !slices.Equal(got, test.want) {
				t.Errorf("ActivatedEnviron = %q, want %q", got, test.want)
			}
		})
	}
}

func TestBinDir(t *testing.T) {
	t.Parallel()

	if got := BinDir("/env", "linux"); got != filepath.Join("/env", "bin") {
		t.Errorf("BinDir(linux) = %q", got)
	}
	if got := BinDir("/env", "windows"); !strings.HasSuffix(got, "Scripts") {
		t.Errorf("BinDir(windows) = %q", got)
	}
}
