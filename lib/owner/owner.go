// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package owner resolves process ids to owning usernames on a remote
// host with a single batched round trip.
//
// The batch is one shell command made of one `ps` lookup per pid,
// joined with ";". Each lookup is followed by `|| echo` so that a pid
// which exited between the device query and this one still produces
// exactly one (blank) line. Output lines are paired with the requested
// pids by position; any disagreement between the number of lines and
// the number of pids fails the whole resolution rather than risk
// attributing a process to the wrong user.
package owner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/gpuwatch/lib/remote"
)

// DefaultTimeout bounds the owner query on one host.
const DefaultTimeout = 2 * time.Second

var (
	// ErrLineCountMismatch means the remote output did not contain
	// exactly one line per requested pid.
	ErrLineCountMismatch = errors.New("owner query returned a different number of lines than pids requested")

	// ErrInvalidPID means a pid was not a decimal number. Pids are
	// interpolated into a shell command, so nothing else is accepted.
	ErrInvalidPID = errors.New("invalid pid")
)

// QueryCommand builds the batched lookup for pids, in order.
func QueryCommand(pids []string) (string, error) {
	lookups := make([]string, 0, len(pids))
	for _, pid := range pids {
		if !isDecimal(pid) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPID, pid)
		}
		lookups = append(lookups, "ps -o user= -p "+pid+" || echo")
	}
	return strings.Join(lookups, ";"), nil
}

// Resolve maps each pid to the username that owns it on host. Pids
// whose line came back blank (the process is gone) are absent from the
// result. An empty pid list returns an empty map without contacting
// the host.
func Resolve(ctx context.Context, executor remote.Executor, host string, pids []string, timeout time.Duration) (map[string]string, error) {
	if len(pids) == 0 {
		return map[string]string{}, nil
	}

	command, err := QueryCommand(pids)
	if err != nil {
		return nil, err
	}

	output, err := executor.Execute(ctx, host, command, timeout)
	if err != nil {
		return nil, fmt.Errorf("owner query: %w", err)
	}

	return pairLines(pids, output)
}

// pairLines zips output lines with pids after checking that the counts
// agree.
func pairLines(pids []string, output string) (map[string]string, error) {
	output = strings.TrimSuffix(output, "\n")
	var lines []string
	if output != "" || len(pids) == 1 {
		lines = strings.Split(output, "\n")
	}
	if len(lines) != len(pids) {
		return nil, fmt.Errorf("%w: %d lines for %d pids", ErrLineCountMismatch, len(lines), len(pids))
	}

	owners := make(map[string]string, len(pids))
	for index, pid := range pids {
		user := strings.TrimSpace(lines[index])
		if user == "" {
			continue
		}
		owners[pid] = user
	}
	return owners, nil
}

func isDecimal(value string) bool {
	if value == "" {
		return false
	}
	for _, character := range value {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
