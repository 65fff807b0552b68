// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/hostlaunch/hostlaunch/lib/sealed"
	"github.com/hostlaunch/hostlaunch/lib/secret"
)

// Credential loads the credential forwarded to the entry point as
// --password. It returns nil (and no error) when no credential is
// configured, in which case the entry point receives an empty value.
//
// The caller must Close the returned buffer.
func (c *Config) Credential() (*secret.Buffer, error) {
	switch {
	case c.Launcher.SealedPassword != "":
		buffer, err := sealed.DecryptWithIdentityFile(c.Launcher.SealedPassword, c.Launcher.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("opening config.sealed_password: %w", err)
		}
		return buffer, nil
	case c.Launcher.PasswordFile != "":
		buffer, err := secret.ReadFromPath(c.Launcher.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("reading config.password_file: %w", err)
		}
		return buffer, nil
	case c.Launcher.Password != "":
		return secret.NewFromBytes([]byte(c.Launcher.Password))
	}
	return nil, nil
}
