// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ArchiveSuffix is appended to a log path to name its archive.
const ArchiveSuffix = ".prev.zst"

// ArchiveLog compresses the log at path into path+ArchiveSuffix,
// replacing any earlier archive. It returns the archive path, or ""
// when there is no log (or an empty one) to archive.
func ArchiveLog(path string) (string, error) {
	input, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", nil
	}

	archivePath := path + ArchiveSuffix
	temporary := archivePath + ".tmp"
	output, err := os.OpenFile(temporary, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	encoder, err := zstd.NewWriter(output, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		output.Close()
		os.Remove(temporary)
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	_, copyErr := io.Copy(encoder, input)
	closeErr := encoder.Close()
	fileErr := output.Close()
	if err := errors.Join(copyErr, closeErr, fileErr); err != nil {
		os.Remove(temporary)
		return "", fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := os.Rename(temporary, archivePath); err != nil {
		os.Remove(temporary)
		return "", err
	}
	return archivePath, nil
}

// ReadArchive decompresses an archive written by ArchiveLog.
func ReadArchive(archivePath string) ([]byte, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return io.ReadAll(decoder)
}
