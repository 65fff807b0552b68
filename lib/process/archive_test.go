// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app_subprocess_h.log")
	content := strings.Repeat("line of output\n", 500)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	archive, err := ArchiveLog(path)
	if err != nil {
		t.Fatalf("ArchiveLog: %v", err)
	}
	if archive != path+ArchiveSuffix {
		t.Errorf("archive = %q, want %q", archive, path+ArchiveSuffix)
	}
	info, err := os.Stat(archive)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(content)) {
		t.Errorf("archive is %d bytes, not smaller than %d", info.Size(), len(content))
	}

	restored, err := ReadArchive(archive)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if string(restored) != content {
		t.Error("restored content differs from the original log")
	}
}

func TestArchiveLog_NothingToArchive(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	empty := filepath.Join(directory, "empty.log")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(directory, "absent.log"), empty} {
		archive, err := ArchiveLog(path)
		if err != nil || archive != "" {
			t.Errorf("ArchiveLog(%s) = %q, %v, want no archive", filepath.Base(path), archive, err)
		}
	}
}
