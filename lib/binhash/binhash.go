// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/zeebo/blake3"
)

// HashFile computes the BLAKE3 digest of the file at path. The file is
// streamed through the hash function in chunks (via io.Copy) to keep
// memory usage constant regardless of file size.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// SameContent reports whether the files at a and b have identical
// digests. A missing b is reported as different rather than as an
// error, since the cache copy legitimately does not exist on first use.
func SameContent(a, b string) (bool, error) {
	digestA, err := HashFile(a)
	if err != nil {
		return false, err
	}
	digestB, err := HashFile(b)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return digestA == digestB, nil
}

// FormatDigest returns the hex-encoded string representation of a
// digest. This is the format used in log output and the run history.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}
