// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for the
// launcher credential. It wraps filippo.io/age for the operations the
// launcher needs: generate x25519 keypairs, encrypt a credential to one
// or more recipients, and decrypt with an identity.
//
// A sealed credential is stored in the configuration file as base64
// text (sealed_password) next to a path to the age identity file that
// can open it (identity_file). Plaintext and private keys are returned
// as [secret.Buffer] values.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] -- encrypt to age public key recipients
//   - [Decrypt] -- decrypt with a secret.Buffer key
//   - [DecryptWithIdentityFile] -- decrypt with an age identity file
//
// Depends on lib/secret for secure memory allocation.
package sealed
