// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"slices"
	"strings"
)

// passwordFlag precedes the credential in the argument vector.
const passwordFlag = "--password"

// redactedValue replaces the credential in logged argument vectors.
const redactedValue = "[REDACTED]"

// ArgumentSet is the fixed command-line contract of the entry point.
type ArgumentSet struct {
	Descriptor string
	Schema     string
	HostName   string
	LogDir     string
	Credential string
}

// Arguments returns the entry point's argument vector:
//
//	--xml <descriptor> [--xsd <schema>] --hostname <host> --log_dir <dir> --password <credential>
//
// --xsd appears only when a schema is configured.
func Arguments(set ArgumentSet) []string {
	args := []string{"--xml", set.Descriptor}
	if set.Schema != "" {
		args = append(args, "--xsd", set.Schema)
	}
	return append(args,
		"--hostname", set.HostName,
		"--log_dir", set.LogDir,
		passwordFlag, set.Credential,
	)
}

// Redacted returns a copy of args with the credential replaced, for
// logging.
func Redacted(args []string) []string {
	redacted := slices.Clone(args)
	for i := 0; i < len(redacted); i++ {
		if redacted[i] == passwordFlag && i+1 < len(redacted) {
			redacted[i+1] = redactedValue
			i++
			continue
		}
		if strings.HasPrefix(redacted[i], passwordFlag+"=") {
			redacted[i] = passwordFlag + "=" + redactedValue
		}
	}
	return redacted
}

// LogFileName returns the per-host log file name for an entry point.
func LogFileName(entryPoint, hostName string) string {
	return entryPoint + "_subprocess_" + hostName + ".log"
}
