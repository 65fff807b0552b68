// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives a launcher run from a resolved configuration
// to the exit code the process should report.
//
// A run moves through fixed stages:
//
//	config → cache → fetch → [validate] → host → repository → environment → process
//
// Validation runs only when a schema is configured, and the process
// stage is skipped in provision-only mode. The first stage to fail
// ends the run with an [*Error] carrying the stage and its exit code;
// only the fetch stage recovers, by falling back to the cached
// descriptor and schema.
//
// The stages that mutate the cache directory (descriptor cache, shared
// clone, environment build) run under an exclusive lock on
// hostlaunch.lock. The lock is released before the entry point starts,
// so long-running programs on one machine do not serialize each other.
//
// Each stage becomes a span when tracing is configured and a
// stage_duration_seconds sample when metrics are. Every run, successful
// or not, is appended to the run history.
package pipeline
