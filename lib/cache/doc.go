// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache locates and lays out the launcher's per-user cache
// directory.
//
// [Resolve] picks the directory (explicit override, then the platform
// cache directory, then a fallback under the home directory) and never
// fails. [Layout] names every file and directory the launcher keeps
// there:
//
//	<root>/descriptor.xml           last good descriptor
//	<root>/descriptor.xsd           last good schema
//	<root>/<Repo>/                  the shared clone
//	<root>/<Repo>-venv-<version>/   one environment per version
//	<root>/<Repo>-venv-<version>.building  present while it is built
//	<root>/hostlaunch.lock          provisioning lock
//	<root>/history.db               run history
//
// Nothing is created until [Layout.Ensure] is called.
package cache
