// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the GPU fleet data model shared by the
// extractor, the poller, and the renderers.
//
// A [FleetSnapshot] holds one [HostSnapshot] per polled host, in poll
// order. Each host carries a [HostReport]: device identifiers
// ("cuda:0", "cuda:1", ...) mapped to [DeviceSnapshot] values with
// memory usage and the [ProcessUsage] entries holding device memory.
// An empty report means the host contributed no data.
//
// Struct tags name fields for JSON, YAML, and (through the json tag
// fallback in fxamacker/cbor) CBOR output.
//
// This package depends on no other gpuwatch packages.
package schema
