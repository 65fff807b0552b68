// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostlaunch/hostlaunch/lib/secret"
)

func newKeypair(t *testing.T) *Keypair {
	t.Helper()
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	t.Cleanup(func() { keypair.Close() })
	return keypair
}

func TestGenerateKeypair(t *testing.T) {
	keypair := newKeypair(t)

	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("PrivateKey does not have prefix AGE-SECRET-KEY-1")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	keypair := newKeypair(t)

	ciphertext, err := Encrypt([]byte("launcher-password"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	defer decrypted.Close()

	if decrypted.String() != "launcher-password" {
		t.Errorf("Decrypt() = %q, want launcher-password", decrypted.String())
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	sender := newKeypair(t)
	other := newKeypair(t)

	ciphertext, err := Encrypt([]byte("launcher-password"), []string{sender.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(ciphertext, other.PrivateKey); err == nil {
		t.Fatal("Decrypt() with the wrong key should fail")
	}
}

func TestEncrypt_Errors(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("Encrypt() with no recipients should fail")
	}
	if _, err := Encrypt([]byte("x"), []string{"age1invalid"}); err == nil {
		t.Error("Encrypt() with an invalid recipient should fail")
	}
}

func TestDecrypt_InvalidInput(t *testing.T) {
	keypair := newKeypair(t)

	if _, err := Decrypt("!!! not base64 !!!", keypair.PrivateKey); err == nil {
		t.Error("Decrypt() with invalid base64 should fail")
	}
	if _, err := Decrypt("aGVsbG8=", keypair.PrivateKey); err == nil {
		t.Error("Decrypt() with non-age ciphertext should fail")
	}

	badKey, err := secret.NewFromBytes([]byte("not-a-key"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer badKey.Close()
	if _, err := Decrypt("aGVsbG8=", badKey); err == nil {
		t.Error("Decrypt() with an invalid private key should fail")
	}
}

func TestDecryptWithIdentityFile(t *testing.T) {
	keypair := newKeypair(t)

	identityPath := filepath.Join(t.TempDir(), "identity.txt")
	content := "# created: 2026-01-01T00:00:00Z\n# public key: " + keypair.PublicKey + "\n" + keypair.PrivateKey.String() + "\n"
	if err := os.WriteFile(identityPath, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ciphertext, err := Encrypt([]byte("launcher-password"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// Configuration values often carry a trailing newline.
	decrypted, err := DecryptWithIdentityFile(ciphertext+"\n", identityPath)
	if err != nil {
		t.Fatalf("DecryptWithIdentityFile() error: %v", err)
	}
	defer decrypted.Close()
	if decrypted.String() != "launcher-password" {
		t.Errorf("decrypted = %q, want launcher-password", decrypted.String())
	}

	if _, err := DecryptWithIdentityFile(ciphertext, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("DecryptWithIdentityFile() with a missing identity file should fail")
	}
}

func TestDecrypt_EmptyPlaintext(t *testing.T) {
	keypair := newKeypair(t)

	ciphertext, err := Encrypt(nil, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(ciphertext, keypair.PrivateKey); err == nil {
		t.Error("Decrypt() of an empty credential should fail")
	}
}
