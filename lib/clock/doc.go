// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The launcher reads the time for three things: run history timestamps,
// stage durations in log lines, and the build time recorded in an
// environment manifest. Components take a [Clock] instead of calling
// time.Now directly so tests can pin those values with [Fake].
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	provisioner := &venv.Provisioner{Clock: c}
package clock
