// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hostlaunch/hostlaunch/lib/pipeline"
	"github.com/hostlaunch/hostlaunch/lib/process"
	"github.com/hostlaunch/hostlaunch/lib/uv"
)

// debugReport describes a provisioned environment well enough to run
// or debug the entry point by hand.
type debugReport struct {
	Repository        string   `yaml:"repository"`
	Environment       string   `yaml:"environment"`
	EnvironmentReused bool     `yaml:"environment_reused"`
	Version           string   `yaml:"version"`
	Commit            string   `yaml:"commit"`
	Python            string   `yaml:"python"`
	EntryPoint        string   `yaml:"entry_point"`
	Descriptor        string   `yaml:"descriptor"`
	Schema            string   `yaml:"schema,omitempty"`
	Host              string   `yaml:"host"`
	LogDir            string   `yaml:"log_dir"`
	Arguments         []string `yaml:"arguments"`
	CommandLine       string   `yaml:"command_line"`
	Activate          string   `yaml:"activate"`
}

// printDebugReport provisions the repository and environment and
// writes the report. The credential appears in the argument list as
// configured: the report is for the operator at this machine.
func printDebugReport(ctx context.Context, launcher *pipeline.Pipeline, stdout io.Writer, logger *slog.Logger) int {
	prepared, err := launcher.Prepare(ctx)
	if err != nil {
		logger.Error("debug report unavailable", "error", err)
		return pipeline.ExitCode(err)
	}
	defer prepared.Close()

	report := buildDebugReport(launcher, prepared, runtime.GOOS)
	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		logger.Error("writing debug report failed", "error", err)
		return 1
	}
	if err := encoder.Close(); err != nil {
		logger.Error("writing debug report failed", "error", err)
		return 1
	}
	return pipeline.ExitSuccess
}

func buildDebugReport(launcher *pipeline.Pipeline, prepared *pipeline.Prepared, goos string) debugReport {
	// Downloads are removed when the report is done; point at the
	// cached copies, which stay.
	arguments := prepared.Arguments
	if prepared.Descriptor.Downloaded {
		arguments.Descriptor = launcher.Layout.DescriptorCache()
	}
	if prepared.Schema.Downloaded {
		arguments.Schema = launcher.Layout.SchemaCache()
	}
	argv := process.Arguments(arguments)

	environment := prepared.Environment
	activate := "source " + uv.BinDir(environment.Dir, goos) + "/activate"
	if goos == "windows" {
		activate = uv.BinDir(environment.Dir, goos) + `\activate`
	}

	return debugReport{
		Repository:        prepared.Repository.Path,
		Environment:       environment.Dir,
		EnvironmentReused: environment.Reused,
		Version:           prepared.Version,
		Commit:            prepared.Repository.Commit,
		Python:            environment.Python,
		EntryPoint:        environment.EntryPoint,
		Descriptor:        arguments.Descriptor,
		Schema:            arguments.Schema,
		Host:              arguments.HostName,
		LogDir:            arguments.LogDir,
		Arguments:         argv,
		CommandLine:       commandLine(append([]string{environment.EntryPoint}, argv...)),
		Activate:          activate,
	}
}

// commandLine joins argv for pasting into a shell, double-quoting
// words that are empty or contain whitespace or quotes.
func commandLine(argv []string) string {
	words := make([]string, len(argv))
	for i, word := range argv {
		if word == "" || strings.ContainsAny(word, " \t\n\"'") {
			word = fmt.Sprintf("%q", word)
		}
		words[i] = word
	}
	return strings.Join(words, " ")
}
