// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()
	tracing, err := Setup(Options{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := tracing.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
	span.End()
	if err := tracing.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestSetup_WritesSpans(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	tracing, err := Setup(Options{File: path, Version: "1.2.3", RunID: "run-1"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	ctx, parent := tracing.Tracer().Start(context.Background(), "pipeline")
	_, child := tracing.Tracer().Start(ctx, "fetch")
	child.SetAttributes(attribute.String("location", "https://example.org/d.xml"))
	child.SetStatus(codes.Error, "download failed")
	child.End()
	parent.End()

	if err := tracing.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var span struct {
			Name   string
			Status struct{ Code string }
		}
		if err := json.Unmarshal(scanner.Bytes(), &span); err != nil {
			t.Fatalf("decoding span line: %v\n%s", err, scanner.Text())
		}
		names = append(names, span.Name)
		if span.Name == "fetch" && span.Status.Code != "Error" {
			t.Errorf("fetch status = %q, want Error", span.Status.Code)
		}
	}
	if len(names) != 2 || names[0] != "fetch" || names[1] != "pipeline" {
		t.Errorf("span names = %v, want [fetch pipeline]", names)
	}
	if !bytes.Contains(data, []byte("run-1")) {
		t.Error("trace file does not carry the run ID resource attribute")
	}
}

func TestSetup_BadPath(t *testing.T) {
	t.Parallel()
	_, err := Setup(Options{File: filepath.Join(t.TempDir(), "missing", "trace.jsonl")})
	if err == nil {
		t.Fatal("expected error for unwritable trace file")
	}
}
