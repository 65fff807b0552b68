// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptor fetches, validates, and reads the XML deployment
// descriptor that tells each host which version of the tool to run.
//
// A descriptor lists hosts:
//
//	<Hosts>
//	  <host name="scanner-01" version="v1.4.0"/>
//	  <host name="scanner-02" version="v1.3.2"/>
//	</Hosts>
//
// The three stages are independent:
//
//   - [Fetcher] resolves a local path or a remote location (http,
//     https, ftp, sftp, s3) to a local file, keeping a copy of the
//     last good document in the cache and falling back to it when the
//     remote is unreachable.
//   - [Validator] checks the document against an XSD, either with the
//     built-in subset validator or with xmllint.
//   - [SelectHost] finds the host's record and exposes its attributes.
//
// Every failure is a typed error ([*FetchError], [*ValidationError],
// [*HostNotFoundError], [*ParseError], [ErrNoVersion]) so callers can
// map it to an exit code with errors.As.
package descriptor
