// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// gpuwatch polls a fleet of GPU machines over SSH and prints a compact
// summary of device memory use and the users running on each device.
//
// Hosts come from --host flags, the hosts list in the configuration
// file, or every concrete Host alias in the OpenSSH client config (in
// that order of precedence). Each host is queried with
// "nvidia-smi -q -x" and, when processes are running, with one batched
// ps lookup for their owners. Up to --max-workers hosts are polled at
// once; a host that fails or times out shows "no data" and never
// affects the others.
//
// Output is a colored table on a terminal, or the full snapshot as
// JSON, YAML, or deterministic CBOR with --format.
package main
