// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Fataler is the subset of testing.TB the helpers need.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value sent on ch. The test fails if
// ch is closed first or nothing arrives within timeout. Trailing
// arguments describe what the test was waiting for: a plain value, or
// a format string and its arguments.
//
//	worker := testutil.RequireReceive(t, started, 5*time.Second, "worker %d", index)
func RequireReceive[T any](t Fataler, ch <-chan T, timeout time.Duration, description ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hung test
	defer timer.Stop()

	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", describe(description))
		}
		return value
	case <-timer.C:
		t.Fatalf("timed out after %v: %s", timeout, describe(description))
	}
	panic("unreachable")
}

func describe(description []any) string {
	switch {
	case len(description) == 0:
		return "(no message)"
	case len(description) == 1:
		return fmt.Sprint(description[0])
	}
	if format, ok := description[0].(string); ok {
		return fmt.Sprintf(format, description[1:]...)
	}
	return fmt.Sprint(description...)
}
