// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Code that stamps or measures time takes a Clock instead of calling
// time.Now directly. Production wiring uses Real(); tests use Fake(),
// which stands still until the test moves it:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	poller := &fleet.Poller{Clock: c, ...}
//	c.Advance(3 * time.Second)
package clock
