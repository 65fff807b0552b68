// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/hostlaunch/hostlaunch/lib/toolpath"
)

// Validator engine names accepted by [NewValidator].
const (
	EngineBuiltin = "builtin"
	EngineXmllint = "xmllint"
)

// Validator checks a descriptor against an XSD schema. Implementations
// return a *[ValidationError] on failure.
type Validator interface {
	Validate(ctx context.Context, xmlPath, xsdPath string) error
}

// NewValidator returns the validator for engine. The locator is used
// only by the xmllint engine to find its binary.
func NewValidator(engine string, locator toolpath.Locator) (Validator, error) {
	switch engine {
	case "", EngineBuiltin:
		return BuiltinValidator{}, nil
	case EngineXmllint:
		return &XmllintValidator{Locator: locator}, nil
	default:
		return nil, fmt.Errorf("unknown validator %q (want %q or %q)", engine, EngineBuiltin, EngineXmllint)
	}
}

// BuiltinValidator validates with the in-process schema subset
// implemented on top of etree. It needs no external binaries.
type BuiltinValidator struct{}

// Validate implements [Validator].
func (BuiltinValidator) Validate(ctx context.Context, xmlPath, xsdPath string) error {
	if err := ctx.Err(); err != nil {
		return &ValidationError{Kind: KindIO, Err: err}
	}

	schemaRoot, err := readRoot(xsdPath, KindMalformedSchema)
	if err != nil {
		return err
	}
	documentRoot, err := readRoot(xmlPath, KindMalformedDocument)
	if err != nil {
		return err
	}

	schema, problems := compileSchema(schemaRoot)
	if len(problems) > 0 {
		return &ValidationError{Kind: KindMalformedSchema, Problems: problems}
	}

	checker := &instanceChecker{schema: schema}
	checker.document(documentRoot)
	if len(checker.problems) > 0 {
		return &ValidationError{Kind: KindSchemaMismatch, Problems: checker.problems}
	}
	return nil
}

// readRoot loads path and returns its root element. Read failures are
// KindIO; parse failures and empty documents are malformedKind.
func readRoot(path string, malformedKind ValidationKind) (*etree.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Kind: KindIO, Err: err}
	}
	document := etree.NewDocument()
	if err := document.ReadFromBytes(data); err != nil {
		return nil, &ValidationError{Kind: malformedKind, Err: fmt.Errorf("%s: %w", path, err)}
	}
	root, err := documentRoot(document)
	if err != nil {
		return nil, &ValidationError{Kind: malformedKind, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return root, nil
}

// xmllint exit statuses (XMLLINT_ERR_* in libxml2's xmllint.c).
const (
	xmllintParseError      = 1
	xmllintValidationError = 3
	xmllintReadError       = 4
	xmllintSchemaError     = 5
)

// XmllintValidator shells out to libxml2's xmllint, which implements
// the complete schema language.
type XmllintValidator struct {
	Locator toolpath.Locator

	// Binary overrides the located xmllint path.
	Binary string
}

// Validate implements [Validator].
func (v *XmllintValidator) Validate(ctx context.Context, xmlPath, xsdPath string) error {
	for _, path := range []string{xmlPath, xsdPath} {
		if _, err := os.Stat(path); err != nil {
			return &ValidationError{Kind: KindIO, Err: err}
		}
	}

	binary := v.Binary
	if binary == "" {
		found, err := v.Locator.Find("xmllint")
		if err != nil {
			return &ValidationError{Kind: KindIO, Err: err}
		}
		binary = found
	}

	command := toolpath.Command{
		Path: binary,
		Args: []string{"--noout", "--schema", xsdPath, xmlPath},
	}
	_, diagnostic, err := command.Output(ctx)
	if err == nil {
		return nil
	}

	kind := KindSchemaMismatch
	switch toolpath.ExitCode(err) {
	case -1:
		if errors.Is(err, fs.ErrNotExist) || ctx.Err() != nil {
			kind = KindIO
		}
	case xmllintParseError:
		kind = KindMalformedDocument
	case xmllintValidationError:
		kind = KindSchemaMismatch
	case xmllintSchemaError:
		kind = KindMalformedSchema
	case xmllintReadError:
		kind = KindIO
	}
	return &ValidationError{Kind: kind, Problems: xmllintProblems(diagnostic, xmlPath), Err: err}
}

// xmllintProblems keeps the diagnostic lines of xmllint's stderr and
// drops the summary line ("<file> fails to validate").
func xmllintProblems(stderr, xmlPath string) []string {
	var problems []string
	for line := range strings.Lines(stderr) {
		line = strings.TrimSpace(line)
		if line == "" || line == xmlPath+" fails to validate" || line == xmlPath+" validates" {
			continue
		}
		problems = append(problems, line)
	}
	return problems
}
