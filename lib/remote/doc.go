// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote runs one shell command on one remote host and returns
// its combined output, bounded by a hard per-call timeout.
//
// Two transports implement [Executor]:
//
//   - [CommandExecutor] spawns the system ssh client. Host names are
//     ssh_config aliases, so everything the operator's client config
//     does (ProxyCommand, ProxyJump, agents, ControlMaster) applies.
//     The child runs in its own process group and the whole group is
//     killed when the timeout fires.
//
//   - [NativeExecutor] dials with golang.org/x/crypto/ssh. Connection
//     parameters (HostName, Port, User, IdentityFile) are resolved from
//     the same ssh_config file; host keys are checked against
//     known_hosts. Proxy directives are not supported.
//
// Both transports follow the same contract: a call either succeeds
// (zero exit status within the timeout) and returns the output, or
// fails and returns "" with an error. Partial output is never returned
// and calls are never retried. Callers decide how to degrade.
//
// Subpackage remotetest provides a scripted [Executor] for tests.
package remote
