// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostlist discovers the hosts to poll from an OpenSSH client
// configuration file.
//
// Every concrete alias named on a Host line is a host, in file order.
// Patterns containing wildcards (* and ?) or negations (!) select
// options for other hosts and are not themselves reachable, so they
// are skipped. Duplicates are kept: a host listed twice is polled
// twice.
//
// Paths are expanded exactly once by [ExpandPath] before the file is
// read: a leading ~ becomes the user's home directory and ${VAR} or
// ${VAR:-default} references are substituted from the environment.
// The same expansion applies on every platform.
package hostlist
