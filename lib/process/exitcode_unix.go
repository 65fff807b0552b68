// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process

import (
	"os"
	"syscall"
)

// exitCode follows the shell convention: a child killed by a signal
// reports 128 plus the signal number.
func exitCode(state *os.ProcessState) int {
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}
