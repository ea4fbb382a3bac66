// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"time"
)

// waitDelay bounds how long Wait keeps draining output pipes after the
// ssh process has been killed. A ProxyCommand grandchild that escaped
// the process group can otherwise hold the pipe open indefinitely.
const waitDelay = 500 * time.Millisecond

// CommandExecutor runs commands through the system ssh client.
type CommandExecutor struct {
	// Binary is the ssh client to run. Defaults to "ssh" (PATH lookup).
	Binary string

	// ConfigFile is passed to ssh as -F when set. Empty means the
	// client's default (~/.ssh/config).
	ConfigFile string

	// ExtraOptions are additional -o options, e.g. "StrictHostKeyChecking=yes".
	ExtraOptions []string

	Logger *slog.Logger
}

// NewCommandExecutor returns a CommandExecutor using the ssh binary on
// PATH and the given client config file (empty for the default).
func NewCommandExecutor(configFile string, logger *slog.Logger) *CommandExecutor {
	return &CommandExecutor{Binary: "ssh", ConfigFile: configFile, Logger: logger}
}

// Execute implements [Executor].
func (e *CommandExecutor) Execute(ctx context.Context, host, command string, timeout time.Duration) (string, error) {
	callContext, cancel := withTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(callContext, e.binary(), e.arguments(host, command, timeout)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	started := time.Now()
	err := cmd.Run()
	if err == nil {
		e.logger().Debug("remote command finished",
			"host", host,
			"duration", time.Since(started),
			"bytes", output.Len(),
		)
		return output.String(), nil
	}

	if callContext.Err() != nil {
		return "", classify(callContext, host, timeout, err)
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return "", &ExitError{Host: host, Code: exitError.ExitCode()}
	}
	return "", fmt.Errorf("running ssh for %s: %w", host, err)
}

func (e *CommandExecutor) binary() string {
	if e.Binary == "" {
		return "ssh"
	}
	return e.Binary
}

// arguments builds the ssh argument vector. BatchMode keeps ssh from
// prompting for passwords or host-key confirmation on a terminal the
// operator is not watching; ConnectTimeout keeps the TCP handshake
// inside the per-call budget.
func (e *CommandExecutor) arguments(host, command string, timeout time.Duration) []string {
	arguments := []string{"-o", "BatchMode=yes"}
	if timeout > 0 {
		seconds := int(math.Ceil(timeout.Seconds()))
		arguments = append(arguments, "-o", "ConnectTimeout="+strconv.Itoa(seconds))
	}
	for _, option := range e.ExtraOptions {
		arguments = append(arguments, "-o", option)
	}
	if e.ConfigFile != "" {
		arguments = append(arguments, "-F", e.ConfigFile)
	}
	// "--" ends option parsing so a host alias starting with "-" cannot
	// be read as a flag.
	return append(arguments, "--", host, command)
}

func (e *CommandExecutor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
