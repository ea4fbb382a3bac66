// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gpuwatch/lib/render"
)

// EnvironmentVariable names the configuration file when --config is
// not given.
const EnvironmentVariable = "GPUWATCH_CONFIG"

// Transports lists the accepted values for transport.kind.
var Transports = []string{"exec", "native"}

// Config is the complete gpuwatch configuration.
type Config struct {
	// SSHConfig is the OpenSSH client configuration used for host
	// discovery and, with the native transport, host resolution.
	SSHConfig string `yaml:"ssh_config" json:"ssh_config"`

	// Hosts, when non-empty, replaces discovery from SSHConfig.
	Hosts []string `yaml:"hosts" json:"hosts"`

	// MaxWorkers caps the number of hosts polled at once.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	Timeouts  TimeoutsConfig  `yaml:"timeouts" json:"timeouts"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// TimeoutsConfig bounds each remote command. Values use
// time.ParseDuration syntax ("2s", "1500ms").
type TimeoutsConfig struct {
	// Device bounds the GPU device query.
	Device string `yaml:"device" json:"device"`

	// Owner bounds the batched process-owner query.
	Owner string `yaml:"owner" json:"owner"`
}

// TransportConfig selects how remote commands are run.
type TransportConfig struct {
	// Kind is "exec" (the system ssh client) or "native" (in-process
	// SSH client).
	Kind string `yaml:"kind" json:"kind"`

	// KnownHosts is the known_hosts file used by the native transport.
	KnownHosts string `yaml:"known_hosts" json:"known_hosts"`

	// InsecureIgnoreHostKey disables host key verification for the
	// native transport.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key" json:"insecure_ignore_host_key"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	// Format is one of [render.Formats].
	Format string `yaml:"format" json:"format"`

	// Processes adds a per-process listing under the table.
	Processes bool `yaml:"processes" json:"processes"`

	// BarWidth is the number of cells in each device's usage bar.
	BarWidth int `yaml:"bar_width" json:"bar_width"`

	// HostWidth is the width of the host column.
	HostWidth int `yaml:"host_width" json:"host_width"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SSHConfig:  "~/.ssh/config",
		MaxWorkers: 4,
		Timeouts: TimeoutsConfig{
			Device: "2s",
			Owner:  "2s",
		},
		Transport: TransportConfig{
			Kind:       "exec",
			KnownHosts: "~/.ssh/known_hosts",
		},
		Output: OutputConfig{
			Format:    string(render.FormatTable),
			BarWidth:  10,
			HostWidth: 20,
		},
	}
}

// Load loads the file named by GPUWATCH_CONFIG. When the variable is
// unset Load returns [Default].
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads the configuration file at path over [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges one file into c. Fields absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// DeviceTimeout returns the parsed device query timeout. Call
// [Config.Validate] first; an unparseable value returns zero.
func (c *Config) DeviceTimeout() time.Duration {
	duration, _ := time.ParseDuration(c.Timeouts.Device)
	return duration
}

// OwnerTimeout returns the parsed owner query timeout. Call
// [Config.Validate] first; an unparseable value returns zero.
func (c *Config) OwnerTimeout() time.Duration {
	duration, _ := time.ParseDuration(c.Timeouts.Owner)
	return duration
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers))
	}

	if err := validateTimeout("timeouts.device", c.Timeouts.Device); err != nil {
		errs = append(errs, err)
	}
	if err := validateTimeout("timeouts.owner", c.Timeouts.Owner); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(Transports, c.Transport.Kind) {
		errs = append(errs, fmt.Errorf("transport.kind must be one of: %v", Transports))
	}
	if c.Transport.Kind == "native" && c.Transport.KnownHosts == "" && !c.Transport.InsecureIgnoreHostKey {
		errs = append(errs, fmt.Errorf("transport.known_hosts is required for the native transport unless insecure_ignore_host_key is set"))
	}

	if _, err := render.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}
	if c.Output.BarWidth < 1 {
		errs = append(errs, fmt.Errorf("output.bar_width must be at least 1, got %d", c.Output.BarWidth))
	}
	if c.Output.HostWidth < 1 {
		errs = append(errs, fmt.Errorf("output.host_width must be at least 1, got %d", c.Output.HostWidth))
	}

	if c.SSHConfig == "" && len(c.Hosts) == 0 {
		errs = append(errs, fmt.Errorf("ssh_config is required when no hosts are listed"))
	}
	for index, host := range c.Hosts {
		if strings.TrimSpace(host) == "" {
			errs = append(errs, fmt.Errorf("hosts[%d] is empty", index))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateTimeout(field, value string) error {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if duration <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}
