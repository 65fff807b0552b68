// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"slices"
	"testing"
)

func TestArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  ArgumentSet
		want []string
	}{
		{
			name: "without schema",
			set:  ArgumentSet{Descriptor: "/c/d.xml", HostName: "lab1", LogDir: "/logs", Credential: "s3cret"},
			want: []string{"--xml", "/c/d.xml", "--hostname", "lab1", "--log_dir", "/logs", "--password", "s3cret"},
		},
		{
			name: "with schema",
			set:  ArgumentSet{Descriptor: "/c/d.xml", Schema: "/c/d.xsd", HostName: "lab1", LogDir: "/logs"},
			want: []string{"--xml", "/c/d.xml", "--xsd", "/c/d.xsd", "--hostname", "lab1", "--log_dir", "/logs", "--password", ""},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := Arguments(test.set); !slices.Equal(got, test.want) {
				t.Errorf("Arguments = %q, want %q", got, test.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	args := []string{"--xml", "d.xml", "--password", "s3cret", "--other", "--password=inline"}
	got := Redacted(args)
	want := []string{"--xml", "d.xml", "--password", "[REDACTED]", "--other", "--password=[REDACTED]"}
	if !slices.Equal(got, want) {
		t.Errorf("Redacted = %q, want %q", got, want)
	}
	if args[3] != "s3cret" {
		t.Error("Redacted modified its input")
	}
}

func TestRedacted_TrailingFlag(t *testing.T) {
	t.Parallel()

	got := Redacted([]string{"--password"})
	if !slices.Equal(got, []string{"--password"}) {
		t.Errorf("Redacted = %q", got)
	}
}

func TestLogFileName(t *testing.T) {
	t.Parallel()

	if got := LogFileName("biobeamer", "lab-7"); got != "biobeamer_subprocess_lab-7.log" {
		t.Errorf("LogFileName = %q", got)
	}
}
