// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package process runs the application entry point and provides the
// launcher's own entrypoint helpers.
//
// [Runner] starts the entry point exactly once with the fixed argument
// contract built by [Arguments], redirects its stdout and stderr into
// a per-host log file, and mirrors its exit status.
//
// [Fatal] and [Exit] centralize the raw I/O that happens before the
// structured logger exists, and process exit from main.
package process
