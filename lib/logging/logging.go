// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the launcher's structured logger.
//
// Records go to stderr (text when stderr is a terminal, JSON
// otherwise) and, once the log directory is known, are also appended
// as JSON to <logDir>/hostlaunch.log. The file always receives debug
// records so a failed unattended run can be diagnosed after the fact.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// FileName is the launcher's own log inside the log directory.
const FileName = "hostlaunch.log"

// Options configures New.
type Options struct {
	// Level is the minimum level written to stderr.
	Level slog.Level

	// Stderr receives console output. Defaults to os.Stderr.
	Stderr io.Writer

	// File, when set, is opened for append and receives every record
	// at debug level and above as JSON. Parent directories are
	// created.
	File string
}

// New returns a logger and a function that closes the log file. The
// close function is never nil.
func New(options Options) (*slog.Logger, func() error, error) {
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	console := consoleHandler(stderr, options.Level)
	if options.File == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(options.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(options.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening launcher log: %w", err)
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(fanoutHandler{console, fileHandler}), file.Close, nil
}

// consoleHandler uses slog.TextHandler for a terminal and
// slog.JSONHandler when stderr is piped or redirected.
func consoleHandler(stderr io.Writer, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if file, ok := stderr.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return slog.NewTextHandler(stderr, options)
	}
	return slog.NewJSONHandler(stderr, options)
}

// ParseLevel accepts debug, info, warn, and error (case-insensitive).
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: want debug, info, warn, or error", name)
	}
	return level, nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
