// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for the launcher
// credential that is forwarded to the entry point.
//
// On Linux, [Buffer] allocates memory outside the Go heap via
// mmap(MAP_ANONYMOUS), locks it into physical RAM via mlock, and marks
// it excluded from core dumps via madvise(MADV_DONTDUMP). On other
// platforms the buffer lives on the Go heap and is only zeroed on
// Close. In both cases Close zeroes the contents and later access
// panics.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [ReadFromPath] -- reads the first line of a password file
//
// The credential must eventually become a command-line argument of the
// entry point, which necessarily copies it onto the heap. The buffer
// bounds the lifetime of every other copy.
package secret
