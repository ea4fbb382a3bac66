// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package report normalizes tag/attribute/text XML documents into a
// canonical nested form of records, lists, and strings.
//
// Normalization follows these rules, applied recursively:
//
//   - Child elements are grouped by tag name. Groups keep the order in
//     which each tag was first seen.
//   - A tag seen once maps to that child's normalized value. A tag seen
//     more than once maps to a []any of every child's value, in
//     document order.
//   - Attributes become keys prefixed with "@".
//   - An element with neither children nor attributes normalizes to its
//     trimmed text as a plain string ("" when empty).
//   - Non-empty text next to children or attributes is kept under the
//     "#text" key.
//
// The count-of-one collapse is a property of the format: a repeated
// element (one <gpu> per device, one <process_info> per process) is
// indistinguishable from a singular field when exactly one instance
// is present. Consumers that iterate repeated elements must pass the
// value through [List], which re-wraps a bare value into a
// one-element list and maps an absent value to an empty list.
package report
