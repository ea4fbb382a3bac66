// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package remote

import "os/exec"

// setProcessGroup is a no-op where process groups are unavailable;
// exec.CommandContext still kills the ssh process itself.
func setProcessGroup(cmd *exec.Cmd) {}
