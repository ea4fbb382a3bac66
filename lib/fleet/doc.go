// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleet polls a list of hosts for GPU usage and reconciles
// each host's device snapshot with its process owners.
//
// [Builder] produces one host's report: it runs the device query
// (lib/smi), then a single batched owner query (lib/owner) for the pids
// the device query found, and attaches usernames to processes. Owner
// resolution is best effort. When it fails the report is returned
// with memory figures intact and no usernames; when a pid is missing
// from an otherwise successful resolution (the process exited between
// the two queries) only that process lacks a username.
//
// [Poller] runs a builder for every host under a concurrency limit.
// Each host gets a pre-allocated slot in the result, written only by
// that host's task, so results keep input order without locking. A
// failing host (unreachable, timed out, malformed report, even a
// panic during extraction) yields an empty report in its slot and
// never affects other hosts.
package fleet
