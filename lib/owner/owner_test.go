// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package owner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/remote/remotetest"
)

func TestQueryCommand(t *testing.T) {
	command, err := QueryCommand([]string{"101", "202"})
	if err != nil {
		t.Fatalf("QueryCommand: %v", err)
	}
	want := "ps -o user= -p 101 || echo;ps -o user= -p 202 || echo"
	if command != want {
		t.Errorf("command = %q, want %q", command, want)
	}
}

func TestQueryCommandRejectsNonNumericPID(t *testing.T) {
	for _, pid := range []string{"", "12a", "1; rm -rf /", "-1", "N/A"} {
		if _, err := QueryCommand([]string{"1", pid}); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("QueryCommand(%q) error = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestResolvePairsByPosition(t *testing.T) {
	executor := remotetest.New()
	executor.Respond("gpu01", "ps ", "alice\nbob\n")

	owners, err := Resolve(context.Background(), executor, "gpu01", []string{"101", "202"}, DefaultTimeout)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]string{"101": "alice", "202": "bob"}
	if !reflect.DeepEqual(owners, want) {
		t.Errorf("owners = %v, want %v", owners, want)
	}
	if calls := executor.CallsTo("gpu01"); len(calls) != 1 {
		t.Errorf("executor called %d times, want one batched call", len(calls))
	}
}

func TestResolveBlankLineMeansExited(t *testing.T) {
	executor := remotetest.New()
	executor.Respond("gpu01", "ps ", "alice\n\n  bob  \n")

	owners, err := Resolve(context.Background(), executor, "gpu01", []string{"1", "2", "3"}, DefaultTimeout)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]string{"1": "alice", "3": "bob"}
	if !reflect.DeepEqual(owners, want) {
		t.Errorf("owners = %v, want %v", owners, want)
	}
}

func TestResolveSingleExitedPID(t *testing.T) {
	executor := remotetest.New()
	executor.Respond("gpu01", "ps ", "\n")

	owners, err := Resolve(context.Background(), executor, "gpu01", []string{"9"}, DefaultTimeout)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(owners) != 0 {
		t.Errorf("owners = %v, want empty", owners)
	}
}

func TestResolveLineCountMismatch(t *testing.T) {
	for _, output := range []string{"alice\n", "alice\nbob\ncarol\n", ""} {
		executor := remotetest.New()
		executor.Respond("gpu01", "ps ", output)

		owners, err := Resolve(context.Background(), executor, "gpu01", []string{"1", "2"}, DefaultTimeout)
		if !errors.Is(err, ErrLineCountMismatch) {
			t.Errorf("output %q: error = %v, want ErrLineCountMismatch", output, err)
		}
		if owners != nil {
			t.Errorf("output %q: owners = %v, want nil", output, owners)
		}
	}
}

func TestResolveExecutorFailure(t *testing.T) {
	executor := remotetest.New()
	executor.Fail("gpu01", "ps ", &remote.ExitError{Host: "gpu01", Code: 255})

	owners, err := Resolve(context.Background(), executor, "gpu01", []string{"1"}, DefaultTimeout)
	var exitError *remote.ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("error = %v, want wrapped ExitError", err)
	}
	if owners != nil {
		t.Errorf("owners = %v, want nil", owners)
	}
}

func TestResolveEmptyPIDsSkipsRemote(t *testing.T) {
	executor := remotetest.New()

	owners, err := Resolve(context.Background(), executor, "gpu01", nil, DefaultTimeout)
	if err != nil || len(owners) != 0 {
		t.Fatalf("Resolve(nil) = %v, %v", owners, err)
	}
	if calls := executor.Calls(); len(calls) != 0 {
		t.Errorf("executor called %d times for no pids", len(calls))
	}
}
