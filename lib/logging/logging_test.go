// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestNew_StderrOnly(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	logger, closeLog, err := New(Options{Level: slog.LevelInfo, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeLog()

	logger.Debug("hidden")
	logger.Info("shown", "host", "scanner-01")

	records := decodeLines(t, stderr.Bytes())
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %s", len(records), stderr.String())
	}
	if records[0]["msg"] != "shown" || records[0]["host"] != "scanner-01" {
		t.Errorf("record = %v", records[0])
	}
}

func TestNew_FanoutToFile(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", FileName)
	logger, closeLog, err := New(Options{Level: slog.LevelWarn, Stderr: &stderr, File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scoped := logger.With("run_id", "r-1")
	scoped.Debug("debug detail")
	scoped.Warn("stale environment")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if console := decodeLines(t, stderr.Bytes()); len(console) != 1 {
		t.Errorf("stderr got %d records, want 1 (warn only)", len(console))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	records := decodeLines(t, data)
	if len(records) != 2 {
		t.Fatalf("file got %d records, want 2", len(records))
	}
	for _, record := range records {
		if record["run_id"] != "r-1" {
			t.Errorf("record missing run_id: %v", record)
		}
	}
}

func TestNew_AppendsAcrossRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	for run := range 2 {
		logger, closeLog, err := New(Options{Stderr: &bytes.Buffer{}, File: path})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Info("run", "index", run)
		closeLog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if records := decodeLines(t, data); len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}
