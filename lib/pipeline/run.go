// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostlaunch/hostlaunch/lib/binhash"
	"github.com/hostlaunch/hostlaunch/lib/history"
	"github.com/hostlaunch/hostlaunch/lib/process"
)

// Outcome is the result of Run.
type Outcome struct {
	RunID string

	// ExitCode is what the launcher should exit with: a stage code on
	// failure, otherwise the entry point's own code.
	ExitCode int

	// Stage is the failing stage, or StageDone.
	Stage Stage

	// Err is nil only when ExitCode is 0.
	Err error

	// Prepared is what the run resolved. Its temporary downloads are
	// already removed.
	Prepared *Prepared

	// Process is the runner's result. It is zero when the entry point
	// was not started.
	Process process.Result

	StartedAt  time.Time
	FinishedAt time.Time
}

// Run executes the whole pipeline once: Prepare, then the entry point
// unless the configuration is provision-only. It always returns an
// Outcome; failures are reported through Outcome.Err and ExitCode.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	cfg := p.Config
	outcome := Outcome{RunID: p.RunID, StartedAt: p.clock().Now()}

	ctx, span := p.tracer().Start(ctx, "hostlaunch.run", trace.WithAttributes(
		attribute.String("hostlaunch.host", cfg.Launcher.HostName),
		attribute.String("hostlaunch.run_id", p.RunID),
	))
	defer span.End()

	p.logBanner()

	prepared := &Prepared{}
	outcome.Prepared = prepared
	err := p.prepare(ctx, prepared)

	if err == nil && !cfg.Pipeline.Run {
		p.logger().Info("provision-only run, entry point not started",
			"entry_point", prepared.Environment.EntryPoint)
	} else if err == nil {
		err = p.stage(ctx, StageProcess, func(ctx context.Context) error {
			outcome.Process = p.Runner.Run(ctx, process.Invocation{
				EntryPoint:      prepared.Environment.EntryPoint,
				Name:            cfg.Environment.EntryPoint,
				Arguments:       prepared.Arguments,
				Environ:         p.Environ,
				ArchivePrevious: cfg.Pipeline.ArchiveLogs,
			})
			return outcome.Process.Err
		})
		if err == nil && outcome.Process.ExitCode != 0 {
			err = &Error{
				Stage: StageProcess,
				Code:  outcome.Process.ExitCode,
				Err:   fmt.Errorf("entry point exited with code %d", outcome.Process.ExitCode),
			}
		}
	}

	if closeErr := prepared.Close(); closeErr != nil {
		p.logger().Warn("cleaning up run failed", "error", closeErr)
	}

	outcome.FinishedAt = p.clock().Now()
	outcome.Err = err
	outcome.ExitCode = ExitCode(err)
	outcome.Stage = StageDone
	var pipelineError *Error
	if errors.As(err, &pipelineError) {
		outcome.Stage = pipelineError.Stage
	}

	span.SetAttributes(
		attribute.String("hostlaunch.version", prepared.Version),
		attribute.String("hostlaunch.stage", string(outcome.Stage)),
		attribute.Int("hostlaunch.exit_code", outcome.ExitCode),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	p.record(ctx, outcome)

	logger := p.logger().With("exit_code", outcome.ExitCode, "duration", outcome.FinishedAt.Sub(outcome.StartedAt))
	if err != nil {
		logger.Error("launcher run failed", "stage", outcome.Stage, "error", err)
	} else {
		logger.Info("launcher run complete")
	}
	return outcome
}

// record writes the run to history and the metrics file. Neither
// affects the exit code.
func (p *Pipeline) record(ctx context.Context, outcome Outcome) {
	cfg := p.Config

	if p.Metrics != nil {
		p.Metrics.Finish(outcome.ExitCode, outcome.FinishedAt)
		if err := p.Metrics.WriteFile(cfg.Pipeline.MetricsFile); err != nil {
			p.logger().Warn("writing metrics failed", "metrics_file", cfg.Pipeline.MetricsFile, "error", err)
		}
	}

	if !cfg.Pipeline.History || p.RunID == "" {
		return
	}
	if err := p.Layout.Ensure(); err != nil {
		p.logger().Warn("run history unavailable", "error", err)
		return
	}
	store, err := history.Open(ctx, p.Layout.HistoryDB(), p.logger())
	if err != nil {
		p.logger().Warn("run history unavailable", "error", err)
		return
	}
	defer store.Close()

	run := history.Run{
		ID:         outcome.RunID,
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
		Host:       cfg.Launcher.HostName,
		Stage:      string(outcome.Stage),
		ExitCode:   outcome.ExitCode,
	}
	if prepared := outcome.Prepared; prepared != nil {
		run.Version = prepared.Version
		run.Commit = prepared.Repository.Commit
		if prepared.Descriptor.Path != "" {
			run.DescriptorDigest = binhash.FormatDigest(prepared.Descriptor.Digest)
		}
	}
	if outcome.Err != nil {
		run.Error = outcome.Err.Error()
	}
	if err := store.Record(ctx, run); err != nil {
		p.logger().Warn("recording run history failed", "error", err)
	}
}
