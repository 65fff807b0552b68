// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/binhash"
)

// Transport downloads a remote location.
type Transport interface {
	Download(ctx context.Context, location *url.URL, destination io.Writer) error
}

// Fetched describes the file a location resolved to.
type Fetched struct {
	// Path is the local file to read: the location itself for local
	// paths, a fresh download for remote locations, or the cached copy
	// after a failure.
	Path string

	// FromCache is true when the cached copy stands in for a location
	// that could not be read.
	FromCache bool

	// Digest is the BLAKE3 digest of the file at Path.
	Digest [32]byte

	// Downloaded is true when Path is a temporary download the caller
	// should remove once it is no longer needed.
	Downloaded bool
}

// Fetcher resolves descriptor and schema locations to local files.
type Fetcher struct {
	// Transports maps URL schemes to downloaders.
	Transports map[string]Transport

	// Timeout bounds each download. Zero means no limit beyond ctx.
	Timeout time.Duration

	// TempDir receives downloads. Empty means os.TempDir.
	TempDir string

	Logger *slog.Logger
}

// Fetch resolves location to a local file and keeps cachePath as the
// last good copy.
//
// A remote location is downloaded to a temporary file. On success the
// cache copy is refreshed (unless its content is identical) and the
// download is returned. On failure the cache copy is returned with
// FromCache set, or a *FetchError of KindFetchFailed when there is
// none.
//
// A local path that exists refreshes the cache copy and is returned
// unchanged. A missing local path falls back to the cache copy, or a
// *FetchError of KindNotFound.
//
// Fetch never deletes the cache copy. A cache refresh that fails is
// logged and does not fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, location, cachePath string) (Fetched, error) {
	logger := f.logger().With("location", RedactLocation(location))

	parsed, remote, err := f.classify(location)
	if err != nil {
		logger.Warn("unsupported descriptor location, trying cached copy", "error", err)
		return f.fromCache(logger, location, cachePath, KindFetchFailed, err)
	}

	if !remote {
		localPath := location
		if parsed != nil {
			localPath = filepath.FromSlash(parsed.Path)
		}
		info, statErr := os.Stat(localPath)
		if statErr != nil || info.IsDir() {
			if statErr == nil {
				statErr = fmt.Errorf("%s is a directory", localPath)
			}
			logger.Warn("local descriptor not readable, trying cached copy", "error", statErr)
			return f.fromCache(logger, location, cachePath, KindNotFound, statErr)
		}
		digest, err := binhash.HashFile(localPath)
		if err != nil {
			return f.fromCache(logger, location, cachePath, KindNotFound, err)
		}
		f.refreshCache(logger, localPath, cachePath)
		logger.Info("using local file", "path", localPath)
		return Fetched{Path: localPath, Digest: digest}, nil
	}

	download, err := f.download(ctx, parsed, cachePath)
	if err != nil {
		logger.Warn("download failed, trying cached copy", "error", err)
		return f.fromCache(logger, location, cachePath, KindFetchFailed, err)
	}
	digest, err := binhash.HashFile(download)
	if err != nil {
		os.Remove(download)
		return f.fromCache(logger, location, cachePath, KindFetchFailed, err)
	}
	f.refreshCache(logger, download, cachePath)
	logger.Info("downloaded", "path", download, "digest", binhash.FormatDigest(digest))
	return Fetched{Path: download, Digest: digest, Downloaded: true}, nil
}

// classify decides whether location is remote. Single-letter schemes
// are Windows drive letters. file:// URLs are local.
func (f *Fetcher) classify(location string) (*url.URL, bool, error) {
	parsed, err := url.Parse(location)
	if err != nil || len(parsed.Scheme) <= 1 {
		return nil, false, nil
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "file" {
		return parsed, false, nil
	}
	if _, ok := f.Transports[scheme]; ok {
		return parsed, true, nil
	}
	if strings.Contains(location, "://") {
		return parsed, true, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return nil, false, nil
}

func (f *Fetcher) download(ctx context.Context, location *url.URL, cachePath string) (string, error) {
	transport := f.Transports[strings.ToLower(location.Scheme)]

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	extension := path.Ext(location.Path)
	if extension == "" {
		extension = filepath.Ext(cachePath)
	}
	file, err := os.CreateTemp(f.TempDir, "hostlaunch-download-*"+extension)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}

	downloadErr := transport.Download(ctx, location, file)
	closeErr := file.Close()
	if downloadErr == nil {
		downloadErr = closeErr
	}
	if downloadErr != nil {
		os.Remove(file.Name())
		return "", downloadErr
	}
	return file.Name(), nil
}

func (f *Fetcher) fromCache(logger *slog.Logger, location, cachePath string, kind FetchKind, cause error) (Fetched, error) {
	if cachePath != "" {
		if info, err := os.Stat(cachePath); err == nil && info.Mode().IsRegular() {
			digest, err := binhash.HashFile(cachePath)
			if err == nil {
				logger.Info("using cached copy", "path", cachePath)
				return Fetched{Path: cachePath, FromCache: true, Digest: digest}, nil
			}
		}
	}
	logger.Error("no cached copy available", "cache", cachePath)
	return Fetched{}, &FetchError{Kind: kind, Location: RedactLocation(location), Err: cause}
}

// refreshCache copies source over cachePath unless the contents already
// match. The copy is written beside cachePath and renamed into place,
// so readers never observe a partial cache file.
func (f *Fetcher) refreshCache(logger *slog.Logger, source, cachePath string) {
	if cachePath == "" || source == cachePath {
		return
	}
	same, err := binhash.SameContent(source, cachePath)
	if err == nil && same {
		logger.Debug("cached copy is current", "cache", cachePath)
		return
	}
	if err := copyAtomic(source, cachePath); err != nil {
		logger.Warn("refreshing cached copy failed", "cache", cachePath, "error", err)
		return
	}
	logger.Info("cached copy refreshed", "cache", cachePath)
}

func copyAtomic(source, destination string) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return err
	}
	temporary := destination + ".tmp"
	output, err := os.OpenFile(temporary, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		os.Remove(temporary)
		return err
	}
	if err := output.Close(); err != nil {
		os.Remove(temporary)
		return err
	}
	if err := os.Rename(temporary, destination); err != nil {
		os.Remove(temporary)
		return err
	}
	return nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// RedactLocation hides URL passwords in logs and errors.
func RedactLocation(location string) string {
	parsed, err := url.Parse(location)
	if err != nil || parsed.User == nil {
		return location
	}
	return parsed.Redacted()
}
