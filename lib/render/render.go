// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gpuwatch/lib/codec"
	"github.com/bureau-foundation/gpuwatch/lib/schema"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
)

// Formats lists every format [Write] accepts.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatCBOR}

// FormatNames returns [Formats] as a comma-separated list.
func FormatNames() string {
	names := make([]string, len(Formats))
	for index, format := range Formats {
		names[index] = string(format)
	}
	return strings.Join(names, ", ")
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	format := Format(name)
	if !slices.Contains(Formats, format) {
		return "", fmt.Errorf("unknown output format %q (want one of: %s)", name, FormatNames())
	}
	return format, nil
}

// Write renders snapshot to w in the given format. Table options are
// ignored by the other formats.
func Write(w io.Writer, format Format, snapshot schema.FleetSnapshot, options TableOptions) error {
	switch format {
	case FormatTable:
		return Table(w, snapshot, options)
	case FormatJSON:
		return JSON(w, snapshot)
	case FormatYAML:
		return YAML(w, snapshot)
	case FormatCBOR:
		return codec.NewEncoder(w).Encode(snapshot)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// JSON writes value as indented JSON followed by a newline.
func JSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// YAML writes value as a YAML document.
func YAML(w io.Writer, value any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return encoder.Close()
}
