// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Parse parses an XML document into an xmlquery node tree.
func Parse(data []byte) (*xmlquery.Node, error) {
	document, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML report: %w", err)
	}
	return document, nil
}

// Decode parses data and normalizes its root element. The result is a
// one-key record mapping the root tag to the root's normalized value,
// so a document <nvidia_smi_log>...</nvidia_smi_log> decodes to
// {"nvidia_smi_log": {...}}.
func Decode(data []byte) (*Record, error) {
	document, err := Parse(data)
	if err != nil {
		return nil, err
	}
	root := rootElement(document)
	if root == nil {
		return nil, errors.New("XML report has no root element")
	}
	result := NewRecord()
	result.Set(root.Data, Normalize(root))
	return result, nil
}

// rootElement returns the first element child of a document node, or
// the node itself when it is already an element.
func rootElement(node *xmlquery.Node) *xmlquery.Node {
	if node.Type == xmlquery.ElementNode {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// Normalize converts one element into its canonical form: a string for
// plain leaves, otherwise a *Record. See the package documentation for
// the rules.
func Normalize(element *xmlquery.Node) any {
	var text strings.Builder
	record := NewRecord()
	counts := make(map[string]int)

	for child := element.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			value := Normalize(child)
			counts[child.Data]++
			switch counts[child.Data] {
			case 1:
				record.Set(child.Data, value)
			case 2:
				first, _ := record.Get(child.Data)
				record.Set(child.Data, []any{first, value})
			default:
				existing, _ := record.Get(child.Data)
				record.Set(child.Data, append(existing.([]any), value))
			}
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(child.Data)
		}
	}

	for _, attribute := range element.Attr {
		record.Set(AttributePrefix+attribute.Name.Local, attribute.Value)
	}

	trimmed := strings.TrimSpace(text.String())
	if record.Len() == 0 {
		return trimmed
	}
	if trimmed != "" {
		record.Set(TextKey, trimmed)
	}
	return record
}
