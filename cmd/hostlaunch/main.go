// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/hostlaunch/hostlaunch/lib/config"
	"github.com/hostlaunch/hostlaunch/lib/logging"
	"github.com/hostlaunch/hostlaunch/lib/pipeline"
	"github.com/hostlaunch/hostlaunch/lib/process"
	"github.com/hostlaunch/hostlaunch/lib/telemetry"
	"github.com/hostlaunch/hostlaunch/lib/version"
)

func main() {
	executable, err := os.Executable()
	if err != nil {
		process.Fatal(pipeline.ExitConfig, fmt.Errorf("locating the launcher executable: %w", err))
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], host{
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Environ:      os.Environ(),
		Getenv:       os.Getenv,
		Executable:   executable,
		UserCacheDir: os.UserCacheDir,
		UserHomeDir:  os.UserHomeDir,
	})
	stop()
	process.Exit(code)
}

// host is everything run takes from the process, so tests can supply
// their own.
type host struct {
	Stdout io.Writer
	Stderr io.Writer

	Environ []string
	Getenv  func(string) string

	Executable   string
	UserCacheDir func() (string, error)
	UserHomeDir  func() (string, error)
}

type flags struct {
	configPath    string
	debug         bool
	provisionOnly bool
	history       int
	logLevel      string
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var parsed flags
	flagSet := pflag.NewFlagSet("hostlaunch", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&parsed.configPath, "config", "c", "", "path to the launcher configuration (default: $HOSTLAUNCH_CONFIG, then config/launcher.ini next to the executable)")
	flagSet.BoolVar(&parsed.debug, "debug", false, "provision the repository and environment, print a YAML report with the exact command line, and exit")
	flagSet.BoolVar(&parsed.provisionOnly, "provision-only", false, "provision the repository and environment without starting the entry point")
	flagSet.IntVar(&parsed.history, "history", 0, "print the last `N` recorded runs and exit")
	flagSet.StringVar(&parsed.logLevel, "log-level", "info", "console log level: debug, info, warn, error")
	flagSet.BoolVar(&parsed.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return flags{}, err
	}
	if flagSet.NArg() > 0 {
		return flags{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	if parsed.history < 0 {
		return flags{}, fmt.Errorf("--history must not be negative")
	}
	if parsed.debug && parsed.history > 0 {
		return flags{}, fmt.Errorf("--debug and --history are mutually exclusive")
	}
	return parsed, nil
}

// run is the launcher. It returns the process exit code.
func run(ctx context.Context, args []string, h host) int {
	parsed, err := parseFlags(args, h.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return pipeline.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(h.Stderr, "error: %v\n", err)
		return pipeline.ExitUsage
	}
	if parsed.showVersion {
		fmt.Fprintf(h.Stdout, "hostlaunch %s\n", version.Full())
		return pipeline.ExitSuccess
	}
	level, err := logging.ParseLevel(parsed.logLevel)
	if err != nil {
		fmt.Fprintf(h.Stderr, "error: %v\n", err)
		return pipeline.ExitUsage
	}

	// Until the configuration names a log directory, log to stderr
	// only.
	bootstrap, _, _ := logging.New(logging.Options{Level: level, Stderr: h.Stderr})

	cfg, err := config.Resolve(config.Options{
		ConfigPath:   parsed.configPath,
		Getenv:       h.Getenv,
		Executable:   h.Executable,
		GOOS:         runtime.GOOS,
		UserCacheDir: h.UserCacheDir,
		UserHomeDir:  h.UserHomeDir,
	})
	if err != nil {
		bootstrap.Error("could not read launcher configuration", "error", err)
		return pipeline.ExitConfig
	}
	if parsed.provisionOnly {
		cfg.Pipeline.Run = false
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("invalid launcher configuration", "config_file", cfg.Path, "error", err)
		return pipeline.ExitConfig
	}

	if parsed.history > 0 {
		return printHistory(ctx, cfg, parsed.history, h.Stdout, bootstrap)
	}

	runID := uuid.NewString()
	logFile := filepath.Join(cfg.Launcher.LogDir, logging.FileName)
	logger, closeLog, err := logging.New(logging.Options{Level: level, Stderr: h.Stderr, File: logFile})
	if err != nil {
		bootstrap.Error("could not open launcher log", "log_file", logFile, "error", err)
		return pipeline.ExitCache
	}
	defer closeLog()
	logger = logger.With("run_id", runID)
	logger.Info("hostlaunch starting", "version", version.Info(), "config_file", cfg.Path)

	tracing := setupTracing(cfg, runID, logger)
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("flushing trace file failed", "error", err)
		}
	}()

	launcher, err := pipeline.New(cfg, pipeline.Options{
		RunID:   runID,
		Environ: h.Environ,
		Logger:  logger,
		Tracer:  tracing.Tracer(),
	})
	if err != nil {
		logger.Error("invalid launcher configuration", "error", err)
		return pipeline.ExitConfig
	}

	if parsed.debug {
		return printDebugReport(ctx, launcher, h.Stdout, logger)
	}
	return launcher.Run(ctx).ExitCode
}

// setupTracing opens the trace file. Tracing is diagnostic: a trace
// file that cannot be opened is logged and the run continues untraced.
func setupTracing(cfg *config.Config, runID string, logger *slog.Logger) *telemetry.Tracing {
	tracing, err := telemetry.Setup(telemetry.Options{
		File:    cfg.Pipeline.TraceFile,
		Version: version.Version,
		RunID:   runID,
	})
	if err == nil {
		return tracing
	}
	logger.Warn("tracing disabled", "trace_file", cfg.Pipeline.TraceFile, "error", err)
	tracing, _ = telemetry.Setup(telemetry.Options{})
	return tracing
}
