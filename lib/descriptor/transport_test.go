// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

// newS3Server serves objects with the headers minio-go needs to build
// its object info. Requests use path-style addressing.
func newS3Server(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestS3Transport_Download(t *testing.T) {
	t.Parallel()

	server := newS3Server(t, map[string]string{"/configs/prod/hosts.xml": sampleDescriptor})
	transport := S3Transport{
		Endpoint: strings.TrimPrefix(server.URL, "http://"),
		Region:   "us-east-1",
	}

	var buffer bytes.Buffer
	if err := transport.Download(context.Background(), mustParse(t, "s3://configs/prod/hosts.xml"), &buffer); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buffer.String() != sampleDescriptor {
		t.Errorf("content = %q", buffer.String())
	}
}

func TestS3Transport_MissingObject(t *testing.T) {
	t.Parallel()

	server := newS3Server(t, nil)
	transport := S3Transport{
		Endpoint: strings.TrimPrefix(server.URL, "http://"),
		Region:   "us-east-1",
	}

	var buffer bytes.Buffer
	err := transport.Download(context.Background(), mustParse(t, "s3://configs/absent.xml"), &buffer)
	if err == nil {
		t.Fatal("expected error for a missing object")
	}
}

func TestS3Transport_RequiresBucketAndKey(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		err := S3Transport{Endpoint: "127.0.0.1:1"}.Download(context.Background(), mustParse(t, raw), &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "s3://bucket/key") {
			t.Errorf("Download(%s) error = %v, want a location format error", raw, err)
		}
	}
}

func TestSFTPTransport_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transport SFTPTransport
		location  string
		want      string
	}{
		{
			name:      "no known hosts",
			transport: SFTPTransport{},
			location:  "sftp://deploy@example.com/hosts.xml",
			want:      "known_hosts",
		},
		{
			name:      "no user",
			transport: SFTPTransport{KnownHostsFile: "/dev/null"},
			location:  "sftp://example.com/hosts.xml",
			want:      "no user",
		},
		{
			name:      "unreadable known hosts",
			transport: SFTPTransport{KnownHostsFile: filepath.Join(t.TempDir(), "absent")},
			location:  "sftp://deploy@example.com/hosts.xml",
			want:      "known hosts",
		},
		{
			name:      "no credentials",
			transport: SFTPTransport{KnownHostsFile: "/dev/null"},
			location:  "sftp://deploy@example.com/hosts.xml",
			want:      "no sftp credentials",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := test.transport.Download(context.Background(), mustParse(t, test.location), &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want containing %q", err, test.want)
			}
		})
	}
}

func TestHTTPTransport_RejectsNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	err := HTTPTransport{Client: server.Client()}.Download(context.Background(), mustParse(t, server.URL), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "304") {
		t.Errorf("error = %v, want a status error", err)
	}
}

func TestStandardTransports_Schemes(t *testing.T) {
	t.Parallel()

	transports := StandardTransports(TransportOptions{})
	for _, scheme := range []string{"http", "https", "ftp", "sftp", "s3"} {
		if transports[scheme] == nil {
			t.Errorf("no transport for %s", scheme)
		}
	}
}
