// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration file loading for gpuwatch.
//
// A configuration file is optional. When present it is named by the
// --config flag (via [LoadFile]) or the GPUWATCH_CONFIG environment
// variable (via [Load]); there is no automatic discovery. The file is
// YAML unless its extension is .json or .jsonc, in which case it is
// JSON extended with comments and trailing commas.
//
// Values in the file are merged over [Default], and command-line flags
// the user explicitly set are merged over the file by the caller.
// Paths are stored as written: ~ and ${VAR} are expanded once, by the
// consumer, immediately before use.
//
// Key exports:
//
//   - [Config] -- hosts, transport, timeouts, and output settings
//   - [Default] -- the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every invalid field at once
//
// This package depends on no other gpuwatch packages.
package config
