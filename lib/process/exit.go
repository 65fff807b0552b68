// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code. Use it in
// main for errors that occur before the structured logger is
// initialized.
func Fatal(code int, err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}

// Exit terminates the launcher with code.
func Exit(code int) {
	os.Exit(code)
}
