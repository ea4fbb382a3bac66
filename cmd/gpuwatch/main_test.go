// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/gpuwatch/lib/config"
	"github.com/bureau-foundation/gpuwatch/lib/process"
	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/remote/remotetest"
	"github.com/bureau-foundation/gpuwatch/lib/render"
	"github.com/bureau-foundation/gpuwatch/lib/smi"
)

const deviceXML = `<?xml version="1.0" ?>
<nvidia_smi_log>
	<driver_version>550.54.15</driver_version>
	<cuda_version>12.4</cuda_version>
	<gpu id="00000000:01:00.0">
		<minor_number>0</minor_number>
		<fb_memory_usage>
			<total>8000 MiB</total>
			<used>2000 MiB</used>
			<free>6000 MiB</free>
		</fb_memory_usage>
		<processes>
			<process_info>
				<pid>55</pid>
				<used_memory>500 MiB</used_memory>
			</process_info>
		</processes>
	</gpu>
</nvidia_smi_log>
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "gpuwatch ") {
		t.Errorf("stdout = %q, want version line", stdout.String())
	}
}

func TestRunHelp(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		var stdout, stderr bytes.Buffer
		if err := run([]string{flag}, &stdout, &stderr); err != nil {
			t.Fatalf("run %s: %v", flag, err)
		}
		if !strings.Contains(stderr.String(), "--max-workers") {
			t.Errorf("%s: help does not list flags:\n%s", flag, stderr.String())
		}
		if stdout.Len() != 0 {
			t.Errorf("%s: help written to stdout", flag)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := [][]string{
		{"--no-such-flag"},
		{"--max-workers", "many"},
		{"stray-argument"},
	}
	for _, args := range tests {
		err := run(args, &bytes.Buffer{}, &bytes.Buffer{})
		if err == nil {
			t.Errorf("run(%q) succeeded, want usage error", args)
			continue
		}
		if code := process.ExitCode(err); code != 2 {
			t.Errorf("run(%q) exit code = %d, want 2 (%v)", args, code, err)
		}
	}
}

func TestRunInvalidConfigurationExitsOne(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	err := run([]string{"--bar-width", "0"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "output.bar_width") {
		t.Errorf("error = %v, want bar_width complaint", err)
	}
	if code := process.ExitCode(err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "gpuwatch.yaml", `
max_workers: 8
hosts: [from-file]
output:
  format: json
  bar_width: 12
`)
	flags, err := parseFlags([]string{"--config", path, "--max-workers", "2", "--timeout", "750ms"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := flags.resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}

	if cfg.MaxWorkers != 2 {
		t.Errorf("max_workers = %d, want flag value 2", cfg.MaxWorkers)
	}
	if cfg.DeviceTimeout() != 750*time.Millisecond {
		t.Errorf("device timeout = %v, want 750ms", cfg.DeviceTimeout())
	}
	// Flags left at their defaults do not clobber file values.
	if cfg.Output.Format != "json" || cfg.Output.BarWidth != 12 {
		t.Errorf("output = %+v, want file values kept", cfg.Output)
	}
	if len(cfg.Hosts) != 1 || cfg.Hosts[0] != "from-file" {
		t.Errorf("hosts = %q, want file hosts", cfg.Hosts)
	}
}

func TestResolveConfigFromEnvironment(t *testing.T) {
	path := writeFile(t, "gpuwatch.jsonc", `{"transport": {"kind": "native", "insecure_ignore_host_key": true}}`)
	t.Setenv(config.EnvironmentVariable, path)

	flags, err := parseFlags([]string{"--host", "a", "--host", "b"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := flags.resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Transport.Kind != "native" || !cfg.Transport.InsecureIgnoreHostKey {
		t.Errorf("transport = %+v, want file values", cfg.Transport)
	}
	if strings.Join(cfg.Hosts, ",") != "a,b" {
		t.Errorf("hosts = %q, want flag hosts in order", cfg.Hosts)
	}
}

func TestResolveHosts(t *testing.T) {
	sshConfig := writeFile(t, "ssh_config", "Host *\n  User ml\nHost gpu01 gpu02\nHost gpu-*\n")

	cfg := config.Default()
	cfg.SSHConfig = sshConfig
	hosts, err := resolveHosts(cfg)
	if err != nil {
		t.Fatalf("resolveHosts: %v", err)
	}
	if strings.Join(hosts, ",") != "gpu01,gpu02" {
		t.Errorf("hosts = %q", hosts)
	}

	cfg.Hosts = []string{"explicit"}
	hosts, err = resolveHosts(cfg)
	if err != nil || strings.Join(hosts, ",") != "explicit" {
		t.Errorf("hosts = %q, %v; want explicit list", hosts, err)
	}
}

func TestPollFleetRendersTable(t *testing.T) {
	executor := remotetest.New()
	executor.Fail("A", smi.DeviceQueryCommand, remote.ErrTimeout)
	executor.Respond("B", smi.DeviceQueryCommand, deviceXML)
	executor.Respond("B", "ps ", "root\n")

	cfg := config.Default()
	cfg.MaxWorkers = 1
	cfg.Output.Processes = true
	snapshot := pollFleet(context.Background(), cfg, executor, []string{"A", "B"}, newLogger(&bytes.Buffer{}, false))

	var stdout bytes.Buffer
	options := tableOptions(cfg, &stdout)
	if options.Profile != termenv.Ascii {
		t.Errorf("profile = %v, want Ascii for a non-terminal writer", options.Profile)
	}
	if err := render.Write(&stdout, render.FormatTable, snapshot, options); err != nil {
		t.Fatalf("Write: %v", err)
	}

	output := stdout.String()
	for _, fragment := range []string{
		"Hosts               cuda:0 -> cuda:0...\n",
		"A                   no data\n",
		"B                   |##--------|\n",
		"root",
	} {
		if !strings.Contains(output, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, output)
		}
	}
}

func TestDump(t *testing.T) {
	executor := remotetest.New()
	executor.Respond("gpu01", smi.DeviceQueryCommand, deviceXML)

	var stdout bytes.Buffer
	if err := dump(context.Background(), executor, "gpu01", time.Second, &stdout); err != nil {
		t.Fatalf("dump: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("dump output is not JSON: %v\n%s", err, stdout.String())
	}
	log, ok := decoded["nvidia_smi_log"].(map[string]any)
	if !ok {
		t.Fatalf("missing nvidia_smi_log root: %s", stdout.String())
	}
	gpu, ok := log["gpu"].(map[string]any)
	if !ok || gpu["@id"] != "00000000:01:00.0" || gpu["minor_number"] != "0" {
		t.Errorf("gpu = %#v", log["gpu"])
	}
}

func TestDumpFailure(t *testing.T) {
	executor := remotetest.New()
	executor.Fail("gpu01", smi.DeviceQueryCommand, remote.ErrTimeout)
	if err := dump(context.Background(), executor, "gpu01", time.Second, &bytes.Buffer{}); err == nil {
		t.Fatal("expected dump to fail")
	}
}

func TestNewExecutor(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, false)

	cfg := config.Default()
	executor, err := newExecutor(cfg, logger)
	if err != nil {
		t.Fatalf("exec transport: %v", err)
	}
	command, ok := executor.(*remote.CommandExecutor)
	if !ok {
		t.Fatalf("executor = %T, want *remote.CommandExecutor", executor)
	}
	if command.ConfigFile != "" {
		t.Errorf("default ssh config passed as -F %q", command.ConfigFile)
	}

	cfg.SSHConfig = writeFile(t, "ssh_config", "Host lab\n")
	executor, err = newExecutor(cfg, logger)
	if err != nil {
		t.Fatalf("exec transport: %v", err)
	}
	if got := executor.(*remote.CommandExecutor).ConfigFile; got != cfg.SSHConfig {
		t.Errorf("ConfigFile = %q, want %q", got, cfg.SSHConfig)
	}

	cfg.Transport.Kind = "native"
	cfg.Transport.InsecureIgnoreHostKey = true
	executor, err = newExecutor(cfg, logger)
	if err != nil {
		t.Fatalf("native transport: %v", err)
	}
	if _, ok := executor.(*remote.NativeExecutor); !ok {
		t.Errorf("executor = %T, want *remote.NativeExecutor", executor)
	}
}
