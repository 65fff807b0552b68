// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package process

import "os"

func exitCode(state *os.ProcessState) int {
	return state.ExitCode()
}
