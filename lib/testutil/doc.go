// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for hostlaunch packages.
//
// [Origin] is a throwaway upstream git repository with tagged
// versions, and [NewFakeUV] writes a shell script that stands in for
// uv so environment builds run without Python. [WriteFile] and
// [WriteExecutable] create fixtures with their parent directories.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never block forever on a
// channel.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
