// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides gpuwatch's CBOR encoding configuration.
//
// gpuwatch emits CBOR for machine consumers that want a compact binary
// fleet snapshot (--format cbor). The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same snapshot always
// produces identical bytes, so outputs can be hashed and compared.
// Timestamps are encoded as RFC 3339 text with nanoseconds.
//
//	data, err := codec.Marshal(snapshot)
//	err = codec.NewEncoder(os.Stdout).Encode(snapshot)
//
// Types carry `json` struct tags only; fxamacker/cbor v2 reads them
// when `cbor` tags are absent, so one tag set names fields for JSON,
// YAML-adjacent tooling, and CBOR alike.
package codec
