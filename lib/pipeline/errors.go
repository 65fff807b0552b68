// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"

	"github.com/hostlaunch/hostlaunch/lib/descriptor"
	"github.com/hostlaunch/hostlaunch/lib/process"
)

// Stage names a step of a run.
type Stage string

const (
	StageConfig      Stage = "config"
	StageCache       Stage = "cache"
	StageFetch       Stage = "fetch"
	StageValidate    Stage = "validate"
	StageHost        Stage = "host"
	StageRepository  Stage = "repository"
	StageEnvironment Stage = "environment"
	StageProcess     Stage = "process"

	// StageDone marks a run that got through every stage.
	StageDone Stage = "done"
)

// Exit codes. A run whose entry point ran exits with the entry point's
// own code instead.
const (
	ExitSuccess           = 0
	ExitUsage             = 2
	ExitStartFailed       = process.ExitStartFailed
	ExitEnvironment       = 13
	ExitEntryPointMissing = process.ExitEntryPointMissing
	ExitFetchFailed       = 20
	ExitMissing           = 21
	ExitValidation        = 22
	ExitHostNotFound      = 23
	ExitNoVersion         = 24
	ExitRepository        = 25
	ExitParse             = 26
	ExitConfig            = 30

	// ExitCache covers unusable local state: the cache directory, the
	// lock, and the launcher's own log file.
	ExitCache = 31
)

// Error is a failed run: the stage that failed and the exit code it
// maps to.
type Error struct {
	Stage Stage
	Code  int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps an error from stage to an exit code. Typed descriptor
// and process errors decide first; anything else takes the stage's
// default.
func Classify(stage Stage, err error) int {
	var (
		fetchError      *descriptor.FetchError
		validationError *descriptor.ValidationError
		hostError       *descriptor.HostNotFoundError
		parseError      *descriptor.ParseError
	)
	switch {
	case errors.As(err, &fetchError):
		if fetchError.Kind == descriptor.KindNotFound {
			return ExitMissing
		}
		return ExitFetchFailed
	case errors.As(err, &validationError):
		return ExitValidation
	case errors.As(err, &hostError):
		return ExitHostNotFound
	case errors.As(err, &parseError):
		return ExitParse
	case errors.Is(err, descriptor.ErrNoVersion):
		return ExitNoVersion
	case errors.Is(err, process.ErrEntryPointMissing):
		return ExitEntryPointMissing
	}

	switch stage {
	case StageConfig:
		return ExitConfig
	case StageCache:
		return ExitCache
	case StageFetch:
		return ExitFetchFailed
	case StageValidate:
		return ExitValidation
	case StageHost:
		return ExitParse
	case StageRepository:
		return ExitRepository
	case StageEnvironment:
		return ExitEnvironment
	case StageProcess:
		return ExitStartFailed
	}
	return 1
}

// ExitCode returns the exit code for an error returned by Prepare: 0
// for nil, the stage code for an *Error, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var pipelineError *Error
	if errors.As(err, &pipelineError) {
		return pipelineError.Code
	}
	return 1
}
