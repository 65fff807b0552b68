// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides hostlaunch's standard CBOR encoding
// configuration.
//
// hostlaunch persists a small amount of internal state next to the
// environments it builds: the environment manifest records which
// version and commit an environment was installed from, and the build
// watchdog marks an environment build that has not finished. Both are
// CBOR. Anything a
// human reads (the --debug report, configuration files) is YAML or
// INI instead.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same manifest always produces identical bytes, so a rewritten
// manifest with unchanged content leaves the file hash unchanged.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Types serialized only through this package use `cbor` struct tags.
package codec
