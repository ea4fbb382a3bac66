// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by gpuwatch tests.
//
// [RequireReceive] bounds a channel receive with a timeout. The fleet
// tests park pool workers on channels; a pool that deadlocks fails
// with a description of what was awaited instead of hanging until the
// global test timeout.
package testutil
