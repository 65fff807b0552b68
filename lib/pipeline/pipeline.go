// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hostlaunch/hostlaunch/lib/cache"
	"github.com/hostlaunch/hostlaunch/lib/checkout"
	"github.com/hostlaunch/hostlaunch/lib/clock"
	"github.com/hostlaunch/hostlaunch/lib/config"
	"github.com/hostlaunch/hostlaunch/lib/descriptor"
	"github.com/hostlaunch/hostlaunch/lib/lockfile"
	"github.com/hostlaunch/hostlaunch/lib/metrics"
	"github.com/hostlaunch/hostlaunch/lib/process"
	"github.com/hostlaunch/hostlaunch/lib/secret"
	"github.com/hostlaunch/hostlaunch/lib/toolpath"
	"github.com/hostlaunch/hostlaunch/lib/venv"
	"github.com/hostlaunch/hostlaunch/lib/version"
)

// Options carries what New needs from the process.
type Options struct {
	// RunID identifies this run in logs, history, and traces.
	RunID string

	// Environ is the process environment, handed to uv and to the
	// entry point.
	Environ []string

	// GOOS selects platform conventions. Empty means runtime.GOOS.
	GOOS string

	// HTTPClient overrides the client used for http(s) descriptors.
	HTTPClient *http.Client

	Clock  clock.Clock
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Pipeline runs the launcher stages for one configuration. New fills
// every component from the configuration; tests replace fields before
// calling Run.
type Pipeline struct {
	Config *config.Config
	Layout cache.Layout

	Fetcher      *descriptor.Fetcher
	Validator    descriptor.Validator
	Repositories *checkout.Provisioner
	Environments *venv.Provisioner
	Runner       *process.Runner

	// Metrics collects stage timings when a metrics file is
	// configured. Nil disables metrics.
	Metrics *metrics.Run

	Environ []string
	RunID   string

	// LockPoll is how often a held cache lock is retried.
	LockPoll time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
	Tracer trace.Tracer
}

// New builds a pipeline for cfg. cfg must already be validated.
func New(cfg *config.Config, options Options) (*Pipeline, error) {
	goos := options.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}

	locator := toolpath.Locator{
		SearchPath: cfg.SearchPath,
		Executable: cfg.Executable,
		GOOS:       goos,
	}
	validator, err := descriptor.NewValidator(cfg.Pipeline.Validator, locator)
	if err != nil {
		return nil, err
	}

	uvOverride := cfg.UVOverride
	if uvOverride == "" {
		uvOverride = cfg.Environment.UV
	}

	pipeline := &Pipeline{
		Config: cfg,
		Layout: cache.Layout{Root: cfg.CacheDir},
		Fetcher: &descriptor.Fetcher{
			Transports: descriptor.StandardTransports(descriptor.TransportOptions{
				UserAgent:  version.UserAgent(),
				HTTPClient: options.HTTPClient,
				S3: descriptor.S3Transport{
					Endpoint:  cfg.S3.Endpoint,
					Region:    cfg.S3.Region,
					Secure:    cfg.S3.Secure,
					AccessKey: cfg.S3.AccessKey,
					SecretKey: cfg.S3.SecretKey,
				},
				SFTP: descriptor.SFTPTransport{
					KnownHostsFile: cfg.SFTP.KnownHosts,
					IdentityFile:   cfg.SFTP.IdentityFile,
					AgentSocket:    cfg.SFTP.AgentSocket,
				},
			}),
			Timeout: cfg.Pipeline.FetchTimeout,
			Logger:  logger,
		},
		Validator:    validator,
		Repositories: &checkout.Provisioner{Logger: logger},
		Environments: &venv.Provisioner{
			UVOverride: uvOverride,
			Locator:    locator,
			Environ:    options.Environ,
			Clock:      clk,
			Logger:     logger,
		},
		Runner:  &process.Runner{Clock: clk, Logger: logger},
		Environ: options.Environ,
		RunID:   options.RunID,
		Clock:   clk,
		Logger:  logger,
		Tracer:  options.Tracer,
	}
	if cfg.Pipeline.MetricsFile != "" {
		pipeline.Metrics = metrics.NewRun(cfg.Launcher.HostName)
	}
	return pipeline, nil
}

// Prepared is everything a run resolved before starting the entry
// point. Close it to remove temporary downloads and release the
// credential.
type Prepared struct {
	// Stage is the last stage that completed.
	Stage Stage

	Descriptor descriptor.Fetched

	// Schema is zero when no schema is configured.
	Schema descriptor.Fetched

	Host        descriptor.HostRecord
	Version     string
	Repository  checkout.Result
	Environment venv.Environment

	// Arguments is the entry point's argument contract, credential
	// included.
	Arguments process.ArgumentSet

	credential *secret.Buffer
}

// Close removes downloaded descriptor and schema files and releases
// the credential. It is safe to call more than once.
func (p *Prepared) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fetched := range []*descriptor.Fetched{&p.Descriptor, &p.Schema} {
		if !fetched.Downloaded || fetched.Path == "" {
			continue
		}
		if err := os.Remove(fetched.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing download %s: %w", fetched.Path, err))
		}
		fetched.Downloaded = false
	}
	if p.credential != nil {
		if err := p.credential.Close(); err != nil {
			errs = append(errs, err)
		}
		p.credential = nil
	}
	return errors.Join(errs...)
}

// Prepare runs every stage up to and including the environment
// build. On failure it returns an *Error and nothing to close.
func (p *Pipeline) Prepare(ctx context.Context) (*Prepared, error) {
	prepared := &Prepared{}
	if err := p.prepare(ctx, prepared); err != nil {
		prepared.Close()
		return nil, err
	}
	return prepared, nil
}

func (p *Pipeline) prepare(ctx context.Context, prepared *Prepared) error {
	cfg := p.Config

	err := p.stage(ctx, StageConfig, func(context.Context) error {
		credential, err := cfg.Credential()
		if err != nil {
			return err
		}
		prepared.credential = credential
		return nil
	})
	if err != nil {
		return err
	}
	prepared.Stage = StageConfig

	var lock *lockfile.Lock
	err = p.stage(ctx, StageCache, func(ctx context.Context) error {
		if err := p.Layout.Ensure(); err != nil {
			return err
		}
		if !cfg.Pipeline.Lock {
			return nil
		}
		acquired, err := lockfile.Acquire(ctx, p.Layout.LockFile(), p.LockPoll, func() {
			p.logger().Info("waiting for another launcher to release the cache lock", "lock", p.Layout.LockFile())
		})
		if err != nil {
			return err
		}
		lock = acquired
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			p.logger().Warn("releasing cache lock failed", "error", err)
		}
	}()
	prepared.Stage = StageCache

	err = p.stage(ctx, StageFetch, func(ctx context.Context) error {
		fetched, err := p.Fetcher.Fetch(ctx, cfg.Launcher.Descriptor, p.Layout.DescriptorCache())
		if err != nil {
			return err
		}
		prepared.Descriptor = fetched
		if cfg.Launcher.Schema == "" {
			return nil
		}
		fetched, err = p.Fetcher.Fetch(ctx, cfg.Launcher.Schema, p.Layout.SchemaCache())
		if err != nil {
			return err
		}
		prepared.Schema = fetched
		return nil
	})
	if err != nil {
		return err
	}
	prepared.Stage = StageFetch

	if prepared.Schema.Path != "" {
		err = p.stage(ctx, StageValidate, func(ctx context.Context) error {
			return p.Validator.Validate(ctx, prepared.Descriptor.Path, prepared.Schema.Path)
		})
		if err != nil {
			return err
		}
		prepared.Stage = StageValidate
	}

	err = p.stage(ctx, StageHost, func(context.Context) error {
		host, err := descriptor.SelectHost(prepared.Descriptor.Path, cfg.Launcher.HostName)
		if err != nil {
			return err
		}
		prepared.Host = host
		resolved, err := host.RequireVersion()
		if err != nil {
			return err
		}
		prepared.Version = resolved
		return nil
	})
	if err != nil {
		return err
	}
	p.logger().Info("host resolved", "host", cfg.Launcher.HostName, "version", prepared.Version)
	prepared.Stage = StageHost

	repositoryName := cfg.RepositoryName()
	err = p.stage(ctx, StageRepository, func(ctx context.Context) error {
		result, err := p.Repositories.Prepare(ctx, cfg.Launcher.RepoURL, prepared.Version, p.Layout.Clone(repositoryName))
		if err != nil {
			return err
		}
		prepared.Repository = result
		return nil
	})
	if err != nil {
		return err
	}
	prepared.Stage = StageRepository

	err = p.stage(ctx, StageEnvironment, func(ctx context.Context) error {
		environment, err := p.Environments.Prepare(ctx, venv.Request{
			Version:               prepared.Version,
			Commit:                prepared.Repository.Commit,
			RepoPath:              prepared.Repository.Path,
			EnvDir:                p.Layout.Environment(repositoryName, prepared.Version),
			EntryPoint:            cfg.Environment.EntryPoint,
			RebuildOnCommitChange: cfg.Environment.RebuildOnCommitChange,
		})
		if err != nil {
			return err
		}
		prepared.Environment = environment
		return nil
	})
	if err != nil {
		return err
	}
	if p.Metrics != nil {
		p.Metrics.SetEnvironmentReused(prepared.Environment.Reused)
	}
	prepared.Stage = StageEnvironment

	prepared.Arguments = process.ArgumentSet{
		Descriptor: prepared.Descriptor.Path,
		Schema:     prepared.Schema.Path,
		HostName:   cfg.Launcher.HostName,
		LogDir:     cfg.Launcher.LogDir,
	}
	if prepared.credential != nil {
		prepared.Arguments.Credential = prepared.credential.String()
	}
	return nil
}

// stage runs fn as one traced, timed stage. A failure comes back as an
// *Error with the stage's exit code.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer().Start(ctx, "hostlaunch."+string(stage))
	defer span.End()

	logger := p.logger().With("stage", stage)
	logger.Debug("stage started")
	start := p.clock().Now()
	err := fn(ctx)
	duration := clock.Since(p.clock(), start)

	if p.Metrics != nil {
		p.Metrics.ObserveStage(string(stage), duration)
	}
	if err != nil {
		code := Classify(stage, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("hostlaunch.exit_code", code))
		logger.Error("stage failed", "exit_code", code, "duration", duration, "error", err)
		return &Error{Stage: stage, Code: code, Err: err}
	}
	logger.Debug("stage complete", "duration", duration)
	return nil
}

// logBanner logs the resolved configuration once per run.
func (p *Pipeline) logBanner() {
	cfg := p.Config
	p.logger().Info("launcher configuration",
		"config_file", cfg.Path,
		"repo_url", descriptor.RedactLocation(cfg.Launcher.RepoURL),
		"descriptor", descriptor.RedactLocation(cfg.Launcher.Descriptor),
		"schema", descriptor.RedactLocation(cfg.Launcher.Schema),
		"host", cfg.Launcher.HostName,
		"log_dir", cfg.Launcher.LogDir,
		"cache_dir", cfg.CacheDir,
		"entry_point", cfg.Environment.EntryPoint,
	)
}

func (p *Pipeline) clock() clock.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return clock.Real()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (p *Pipeline) tracer() trace.Tracer {
	if p.Tracer != nil {
		return p.Tracer
	}
	return noop.NewTracerProvider().Tracer("hostlaunch")
}
