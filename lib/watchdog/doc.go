// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records in-progress work that must not be mistaken
// for finished work if the process dies halfway.
//
// A caller writes a [State] before starting a destructive rebuild and
// clears it once the result is complete. A later process that finds the
// state still present knows the earlier attempt was interrupted and
// that whatever it left behind cannot be trusted, even if it looks
// complete.
//
// The state file is written atomically (temporary file, fsync, rename,
// fsync of the parent directory) so readers never see a partial write.
// It is CBOR encoded with the launcher's codec.
package watchdog
