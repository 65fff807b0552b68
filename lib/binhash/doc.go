// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content hashing for cached files.
//
// The descriptor fetcher hashes every downloaded descriptor and schema
// and compares the digest with the cached copy, so an unchanged remote
// document does not rewrite the cache and the log records whether the
// deployment description actually changed between runs. The digest is
// also stored with each run in the history database.
//
// The API surface:
//
//   - [HashFile] -- streams a file through BLAKE3, returning a [32]byte
//     digest with constant memory usage regardless of file size
//   - [SameContent] -- reports whether two files hash identically,
//     treating a missing file as different
//   - [FormatDigest] -- canonical hex representation
//
// This package has no dependencies on other hostlaunch packages.
package binhash
