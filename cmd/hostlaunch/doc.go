// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Hostlaunch bootstraps a Python program on a lab host. It reads
// launcher.ini, resolves this host's record from a local or remote XML
// descriptor, checks out the recorded version of the program's git
// repository, provisions a uv virtual environment for it, and runs the
// installed entry point with its output in a per-host log file.
//
// The exit code is the entry point's own, or a launcher code naming
// the stage that failed (20s for the descriptor, 25 for the
// repository, 13 for the environment, 30s for configuration and
// cache). --debug provisions everything and prints a YAML report with
// the exact command line instead of running it. --history N prints the
// last N runs recorded in the cache directory.
package main
