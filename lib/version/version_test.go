// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalCommit, originalDirty, originalTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime = originalCommit, originalDirty, originalTime
	})

	GitCommit, GitDirty, BuildTime = "abc1234", "false", "2026-10-17T09:30:00Z"
	if got, want := Info(), Version+" (abc1234, 2026-10-17T09:30:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want dirty marker", got)
	}
}

func TestFprint(t *testing.T) {
	var buffer bytes.Buffer
	Fprint(&buffer, "gpuwatch")

	output := buffer.String()
	if !strings.HasPrefix(output, "gpuwatch "+Info()) {
		t.Errorf("output = %q, want binary name and Info()", output)
	}
	if !strings.Contains(output, runtime.Version()) {
		t.Errorf("output = %q, want Go version", output)
	}
}
