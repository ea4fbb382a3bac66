// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render writes a fleet snapshot for people and for programs.
//
// The table format is a one-screen overview: one row per host in poll
// order, one bar per device showing memory use as red "#" cells
// followed by green "-" cells, and a faint "no data" for hosts that
// contributed nothing. Styling goes through a lipgloss renderer bound
// to an explicit termenv color profile, so output written to a pipe or
// a test buffer can be forced to plain text with [termenv.Ascii].
//
// The json, yaml, and cbor formats encode the [schema.FleetSnapshot]
// itself. CBOR output is deterministic (see lib/codec).
package render
