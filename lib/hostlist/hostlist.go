// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// DefaultConfigPath is the OpenSSH per-user client configuration.
const DefaultConfigPath = "~/.ssh/config"

// Discover expands path and returns the concrete host aliases it
// declares.
func Discover(path string) ([]string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("opening ssh config: %w", err)
	}
	defer file.Close()

	hosts, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return hosts, nil
}

// Decode parses an ssh config read from r. Match sections, which the
// parser rejects, are blanked out up to the next Host line; their
// settings do not apply. Line numbers in errors stay those of r.
func Decode(r io.Reader) (*ssh_config.Config, error) {
	var kept strings.Builder
	inMatch := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.ToLower(keyword(line)) {
		case "match":
			inMatch = true
		case "host":
			inMatch = false
		}
		if !inMatch {
			kept.WriteString(line)
		}
		kept.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ssh config: %w", err)
	}

	decoded, err := ssh_config.Decode(strings.NewReader(kept.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing ssh config: %w", err)
	}
	return decoded, nil
}

// keyword returns the first token of a config line. Keywords end at
// whitespace or "=".
func keyword(line string) string {
	line = strings.TrimLeft(line, " \t")
	if end := strings.IndexAny(line, " \t="); end >= 0 {
		return line[:end]
	}
	return line
}

// Parse returns the concrete host aliases declared in an ssh config
// read from r. The result is never nil.
func Parse(r io.Reader) ([]string, error) {
	decoded, err := Decode(r)
	if err != nil {
		return nil, err
	}

	hosts := []string{}
	for _, block := range decoded.Hosts {
		for _, pattern := range block.Patterns {
			alias := pattern.String()
			// String drops a leading "!", so negated patterns are
			// recognized by the block refusing its own alias.
			if !isConcrete(alias) || !block.Matches(alias) {
				continue
			}
			hosts = append(hosts, alias)
		}
	}
	return hosts, nil
}

func isConcrete(alias string) bool {
	return alias != "" && !strings.ContainsAny(alias, "*?")
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandPath expands a leading ~ (alone or followed by a separator)
// to the home directory and substitutes ${VAR} and ${VAR:-default}
// from the environment. An unset variable without a default expands
// to the empty string.
func ExpandPath(path string) (string, error) {
	expanded := varPattern.ReplaceAllStringFunc(path, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})

	if expanded == "~" || strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %q: %w", path, err)
		}
		expanded = filepath.Join(home, expanded[1:])
	}
	return expanded, nil
}
