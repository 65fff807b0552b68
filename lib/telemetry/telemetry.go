// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry exports pipeline stage spans as JSON lines to a
// file. Without a trace file the tracer is a no-op.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is the service.name resource attribute.
const ServiceName = "hostlaunch"

// Tracing owns a tracer provider and the file it writes to.
type Tracing struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	file     *os.File
}

// Options configures Setup.
type Options struct {
	// File receives one JSON object per finished span, appended.
	// Empty disables tracing.
	File string

	// Version and RunID become resource attributes.
	Version string
	RunID   string
}

// Setup creates the tracer. The provider is not installed globally;
// callers take the tracer from Tracer.
func Setup(options Options) (*Tracing, error) {
	if options.File == "" {
		return &Tracing{tracer: noop.NewTracerProvider().Tracer(ServiceName)}, nil
	}

	file, err := os.OpenFile(options.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	// Spans are exported as they end. A launcher that exits through
	// process.Exit must not lose a batch.
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(options.Version),
			attribute.String("hostlaunch.run_id", options.RunID),
		)),
	)
	return &Tracing{
		tracer:   provider.Tracer(ServiceName),
		provider: provider,
		file:     file,
	}, nil
}

// Tracer returns the tracer for pipeline spans.
func (t *Tracing) Tracer() trace.Tracer {
	return t.tracer
}

// Shutdown flushes pending spans and closes the trace file.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	shutdownErr := t.provider.Shutdown(ctx)
	closeErr := t.file.Close()
	return errors.Join(shutdownErr, closeErr)
}
