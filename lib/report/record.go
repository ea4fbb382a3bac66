// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// AttributePrefix marks keys that came from XML attributes.
const AttributePrefix = "@"

// TextKey holds text content that appears alongside child elements or
// attributes.
const TextKey = "#text"

// Record is an insertion-ordered mapping from key to normalized value.
// Values are string, *Record, or []any.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores value under key. A new key is appended to the key order;
// an existing key keeps its position.
func (r *Record) Set(key string, value any) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// String returns the string stored under key. It fails when the key is
// missing or holds a record or list.
func (r *Record) String(key string) (string, error) {
	value, ok := r.Get(key)
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, not a string", key, value)
	}
	return text, nil
}

// Record returns the record stored under key. It fails when the key is
// missing or holds a string or list.
func (r *Record) Record(key string) (*Record, error) {
	value, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	child, ok := value.(*Record)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a record", key, value)
	}
	return child, nil
}

// List returns the value under key re-wrapped by [List]. A missing key
// yields an empty list.
func (r *Record) List(key string) []any {
	value, _ := r.Get(key)
	return List(value)
}

// List re-expands a possibly collapsed repeated value: nil yields an
// empty list, a []any is returned unchanged, and any other value is
// wrapped into a one-element list.
func List(value any) []any {
	switch typed := value.(type) {
	case nil:
		return []any{}
	case []any:
		return typed
	default:
		return []any{typed}
	}
}

// MarshalJSON encodes the record as a JSON object with keys in
// insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for index, key := range r.keys {
		if index > 0 {
			buffer.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		encodedValue, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
		buffer.Write(encodedValue)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// MarshalYAML encodes the record as a YAML mapping with keys in
// insertion order.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range r.keys {
		var valueNode yaml.Node
		if err := valueNode.Encode(r.values[key]); err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&valueNode,
		)
	}
	return node, nil
}
