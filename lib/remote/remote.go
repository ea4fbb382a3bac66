// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned (wrapped) when a remote command does not
// finish within its timeout.
var ErrTimeout = errors.New("remote command timed out")

// Executor runs a command on a remote host.
//
// Execute returns the command's combined stdout and stderr when it
// exits with status zero before timeout elapses. On any failure it
// returns an empty string and a non-nil error. Implementations must be
// safe for concurrent use: the fleet poller calls Execute from many
// goroutines at once.
type Executor interface {
	Execute(ctx context.Context, host, command string, timeout time.Duration) (string, error)
}

// ExitError reports a remote command that ran but exited non-zero.
type ExitError struct {
	Host string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command on %s exited with status %d", e.Host, e.Code)
}

// withTimeout derives the per-call context. A non-positive timeout
// means the caller's context is the only bound.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classify converts a failure observed after callContext ended into
// ErrTimeout when the per-call deadline (not the parent context) is
// what stopped the command.
func classify(callContext context.Context, host string, timeout time.Duration, err error) error {
	if errors.Is(callContext.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s after %v: %w", host, timeout, ErrTimeout)
	}
	if callContext.Err() != nil {
		return fmt.Errorf("%s: %w", host, callContext.Err())
	}
	return err
}
