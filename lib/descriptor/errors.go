// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// FetchKind classifies a fetch failure.
type FetchKind int

const (
	// KindFetchFailed means a remote download failed (or the scheme is
	// unsupported) and no cached copy exists.
	KindFetchFailed FetchKind = iota + 1

	// KindNotFound means a local path does not exist and no cached
	// copy exists.
	KindNotFound
)

func (k FetchKind) String() string {
	switch k {
	case KindFetchFailed:
		return "fetch failed"
	case KindNotFound:
		return "not found"
	default:
		return fmt.Sprintf("FetchKind(%d)", int(k))
	}
}

// FetchError reports a location that could not be resolved to a file.
type FetchError struct {
	Kind     FetchKind
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (no cached copy)", e.Location, e.Kind)
	}
	return fmt.Sprintf("%s: %s (no cached copy): %v", e.Location, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ValidationKind classifies a validation failure.
type ValidationKind int

const (
	// KindMalformedDocument means the descriptor is not well-formed
	// XML.
	KindMalformedDocument ValidationKind = iota + 1

	// KindMalformedSchema means the schema is not well-formed XML or
	// not a usable XSD.
	KindMalformedSchema

	// KindSchemaMismatch means the descriptor does not satisfy the
	// schema.
	KindSchemaMismatch

	// KindIO means one of the files could not be read, or the
	// external validator could not be run.
	KindIO
)

func (k ValidationKind) String() string {
	switch k {
	case KindMalformedDocument:
		return "malformed descriptor"
	case KindMalformedSchema:
		return "malformed schema"
	case KindSchemaMismatch:
		return "descriptor does not match schema"
	case KindIO:
		return "validation I/O error"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError reports why a descriptor failed validation.
// Problems lists every schema violation found, each prefixed with the
// element path.
type ValidationError struct {
	Kind     ValidationKind
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Kind.String())
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	if len(e.Problems) > 0 {
		builder.WriteString(": ")
		builder.WriteString(strings.Join(e.Problems, "; "))
	}
	return builder.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// HostNotFoundError reports that no <host> record matched. Known lists
// every distinct non-empty host name in the descriptor, in document
// order.
type HostNotFoundError struct {
	Host  string
	Known []string
}

func (e *HostNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("host %q not found (descriptor lists no hosts)", e.Host)
	}
	return fmt.Sprintf("host %q not found (known hosts: %s)", e.Host, strings.Join(e.Known, ", "))
}

// ParseError reports a descriptor that is not well-formed XML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing descriptor %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrNoVersion is returned by HostRecord.RequireVersion when the host
// record has no version attribute.
var ErrNoVersion = errors.New("host record has no version attribute")
