// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func constant(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func failing() (string, error) {
	return "", errors.New("unknown")
}

func environment(variables map[string]string) func(string) string {
	return func(name string) string { return variables[name] }
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolver Resolver
		want     string
	}{
		{
			name: "override wins",
			resolver: Resolver{
				Getenv:       environment(map[string]string{EnvironmentVariable: "/srv/cache"}),
				GOOS:         "linux",
				UserCacheDir: constant("/home/op/.cache"),
			},
			want: "/srv/cache",
		},
		{
			name: "unix platform cache",
			resolver: Resolver{
				GOOS:         "linux",
				UserCacheDir: constant("/home/op/.cache"),
			},
			want: filepath.Join("/home/op/.cache", "hostlaunch"),
		},
		{
			name: "windows platform cache",
			resolver: Resolver{
				GOOS:         "windows",
				UserCacheDir: constant(`C:\Users\op\AppData\Local`),
			},
			want: `C:\Users\op\AppData\Local\Hostlaunch\hostlaunch\Cache`,
		},
		{
			name: "unix home fallback",
			resolver: Resolver{
				GOOS:         "darwin",
				UserCacheDir: failing,
				UserHomeDir:  constant("/Users/op"),
			},
			want: filepath.Join("/Users/op", ".cache", "hostlaunch", "Hostlaunch"),
		},
		{
			name: "windows LOCALAPPDATA fallback",
			resolver: Resolver{
				Getenv:       environment(map[string]string{"LOCALAPPDATA": `D:\Local\`}),
				GOOS:         "windows",
				UserCacheDir: failing,
				UserHomeDir:  constant(`C:\Users\op`),
			},
			want: `D:\Local\hostlaunch\Hostlaunch`,
		},
		{
			name: "windows home fallback",
			resolver: Resolver{
				GOOS:         "windows",
				UserCacheDir: failing,
				UserHomeDir:  constant(`C:\Users\op`),
			},
			want: `C:\Users\op\hostlaunch\Hostlaunch`,
		},
		{
			name:     "nothing known",
			resolver: Resolver{GOOS: "linux", UserCacheDir: failing, UserHomeDir: failing},
			want:     ".hostlaunch-cache",
		},
		{
			name:     "zero resolver",
			resolver: Resolver{},
			want:     ".hostlaunch-cache",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(test.resolver); got != test.want {
				t.Errorf("Resolve() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "cache")
	layout := Layout{Root: root}

	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("cache root exists before Ensure: %v", err)
	}
	if err := layout.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("cache root not created: %v", err)
	}
	if err := layout.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}

	checks := map[string]string{
		layout.DescriptorCache():                filepath.Join(root, "descriptor.xml"),
		layout.SchemaCache():                    filepath.Join(root, "descriptor.xsd"),
		layout.Clone("Tool"):                    filepath.Join(root, "Tool"),
		layout.Environment("Tool", "1.2.0"):     filepath.Join(root, "Tool-venv-1.2.0"),
		layout.Environment("Tool", "feature/x"): filepath.Join(root, "Tool-venv-feature_2Fx"),
		layout.LockFile():                       filepath.Join(root, "hostlaunch.lock"),
		layout.HistoryDB():                      filepath.Join(root, "history.db"),
	}
	for got, want := range checks {
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	}

	if err := (Layout{}).Ensure(); err == nil {
		t.Error("Ensure() with empty root should fail")
	}
}

func TestSanitizeVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1.0":          "1.0",
		"v2.3.1+build": "v2.3.1+build",
		"release/2.1":  "release_2F2.1",
		"release_2.1":  "release_5F2.1",
		"release:2.1":  "release_3A2.1",
		"../../etc":    ".._2F.._2Fetc",
		"..":           "_2E_2E",
		"":             "_",
		"a b":          "a_20b",
	}
	for input, want := range tests {
		if got := SanitizeVersion(input); got != want {
			t.Errorf("SanitizeVersion(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeVersion_DistinctVersionsNeverCollide(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		first := rapid.String().Draw(t, "first")
		second := rapid.String().Draw(t, "second")
		if first == second {
			return
		}
		a, b := SanitizeVersion(first), SanitizeVersion(second)
		if a == b {
			t.Fatalf("SanitizeVersion(%q) and SanitizeVersion(%q) both = %q", first, second, a)
		}
		for _, component := range []string{a, b} {
			if component == "." || component == ".." || strings.ContainsAny(component, `/\`) {
				t.Fatalf("unsafe path component %q", component)
			}
		}
	})
}
