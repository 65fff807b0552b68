// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/clock"
)

// Launcher exit codes owned by the runner. Any other code returned by
// Run is the child's own.
const (
	ExitStartFailed       = 11
	ExitEntryPointMissing = 14
)

// ErrEntryPointMissing is reported when the entry point file does not
// exist. No process is started.
var ErrEntryPointMissing = errors.New("entry point not found")

// Invocation describes one run of the entry point.
type Invocation struct {
	// EntryPoint is the path of the script to execute.
	EntryPoint string

	// Name is the entry point's name, used in the log file name.
	Name string

	Arguments ArgumentSet

	// Environ is the child's environment. Nil inherits the launcher's.
	Environ []string

	// Dir is the working directory. Empty inherits the launcher's.
	Dir string

	// ArchivePrevious compresses the previous log before it is
	// truncated.
	ArchivePrevious bool
}

// Result is the outcome of a run.
type Result struct {
	// ExitCode is the child's exit code, 128+signal for a child killed
	// by a signal, or one of the runner's own exit codes.
	ExitCode int

	// LogFile is the per-host log path, empty if it was never opened.
	LogFile string

	// Archive is the compressed previous log, when one was written.
	Archive string

	Duration time.Duration

	// Err explains a failure to start. It is nil whenever the child
	// ran, whatever its exit code.
	Err error
}

// Runner starts entry points.
type Runner struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// Run executes the entry point once and waits for it. There is no
// retry.
func (r *Runner) Run(ctx context.Context, invocation Invocation) Result {
	logger := r.logger().With("entry_point", invocation.EntryPoint)

	if info, err := os.Stat(invocation.EntryPoint); err != nil || info.IsDir() {
		logger.Error("entry point not found")
		return Result{ExitCode: ExitEntryPointMissing, Err: fmt.Errorf("%w: %s", ErrEntryPointMissing, invocation.EntryPoint)}
	}

	logDir := invocation.Arguments.LogDir
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logger.Error("creating log directory failed", "log_dir", logDir, "error", err)
		return Result{ExitCode: ExitStartFailed, Err: fmt.Errorf("creating log directory: %w", err)}
	}
	result := Result{LogFile: filepath.Join(logDir, LogFileName(invocation.Name, invocation.Arguments.HostName))}

	if invocation.ArchivePrevious {
		archive, err := ArchiveLog(result.LogFile)
		if err != nil {
			logger.Warn("archiving previous log failed", "log_file", result.LogFile, "error", err)
		} else if archive != "" {
			logger.Info("previous log archived", "archive", archive)
			result.Archive = archive
		}
	}

	logFile, err := os.Create(result.LogFile)
	if err != nil {
		logger.Error("opening log file failed", "log_file", result.LogFile, "error", err)
		result.ExitCode = ExitStartFailed
		result.Err = fmt.Errorf("opening log file: %w", err)
		return result
	}
	defer logFile.Close()

	args := Arguments(invocation.Arguments)
	logger.Info("starting entry point",
		"command", strings.Join(append([]string{invocation.EntryPoint}, Redacted(args)...), " "),
		"log_file", result.LogFile)

	command := exec.CommandContext(ctx, invocation.EntryPoint, args...)
	command.Stdout = logFile
	command.Stderr = logFile
	command.Env = invocation.Environ
	command.Dir = invocation.Dir

	start := r.clock().Now()
	if err := command.Start(); err != nil {
		logger.Error("starting entry point failed", "error", err)
		result.ExitCode = ExitStartFailed
		result.Err = fmt.Errorf("starting %s: %w", invocation.EntryPoint, err)
		return result
	}
	waitErr := command.Wait()
	result.Duration = clock.Since(r.clock(), start)

	if command.ProcessState == nil {
		result.ExitCode = ExitStartFailed
		result.Err = fmt.Errorf("waiting for %s: %w", invocation.EntryPoint, waitErr)
		return result
	}
	result.ExitCode = exitCode(command.ProcessState)

	if result.ExitCode == 0 {
		logger.Info("entry point finished", "duration", result.Duration, "log_file", result.LogFile)
	} else {
		logger.Error("entry point failed", "exit_code", result.ExitCode, "duration", result.Duration, "log_file", result.LogFile)
	}
	return result
}

func (r *Runner) clock() clock.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return clock.Real()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}
