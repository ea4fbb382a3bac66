// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gpuwatch/lib/config"
	"github.com/bureau-foundation/gpuwatch/lib/fleet"
	"github.com/bureau-foundation/gpuwatch/lib/hostlist"
	"github.com/bureau-foundation/gpuwatch/lib/process"
	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/render"
	"github.com/bureau-foundation/gpuwatch/lib/report"
	"github.com/bureau-foundation/gpuwatch/lib/schema"
	"github.com/bureau-foundation/gpuwatch/lib/smi"
	"github.com/bureau-foundation/gpuwatch/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// commandFlags holds parsed command-line values. Only flags the user
// set explicitly override the configuration file.
type commandFlags struct {
	set *pflag.FlagSet

	configPath   string
	sshConfig    string
	hosts        []string
	maxWorkers   int
	timeout      time.Duration
	ownerTimeout time.Duration
	transport    string
	knownHosts   string
	insecure     bool
	format       string
	processes    bool
	barWidth     int
	hostWidth    int
	dumpHost     string
	verbose      bool
	help         bool
}

func parseFlags(args []string) (*commandFlags, error) {
	defaults := config.Default()
	flags := &commandFlags{set: pflag.NewFlagSet("gpuwatch", pflag.ContinueOnError)}
	set := flags.set
	set.SetOutput(io.Discard)

	set.StringVar(&flags.configPath, "config", "", "configuration file (YAML, or JSON/JSONC by extension; default $"+config.EnvironmentVariable+")")
	set.StringVar(&flags.sshConfig, "ssh-config", defaults.SSHConfig, "OpenSSH client config to discover hosts from")
	set.StringArrayVar(&flags.hosts, "host", nil, "host to poll (repeatable; overrides discovery)")
	set.IntVar(&flags.maxWorkers, "max-workers", defaults.MaxWorkers, "maximum number of hosts polled at once")
	set.DurationVar(&flags.timeout, "timeout", defaults.DeviceTimeout(), "timeout for the GPU device query")
	set.DurationVar(&flags.ownerTimeout, "owner-timeout", defaults.OwnerTimeout(), "timeout for the process owner query")
	set.StringVar(&flags.transport, "transport", defaults.Transport.Kind, "remote transport: exec (system ssh) or native")
	set.StringVar(&flags.knownHosts, "known-hosts", defaults.Transport.KnownHosts, "known_hosts file for the native transport")
	set.BoolVar(&flags.insecure, "insecure-ignore-host-key", false, "skip host key verification (native transport)")
	set.StringVar(&flags.format, "format", defaults.Output.Format, "output format: "+render.FormatNames())
	set.BoolVar(&flags.processes, "processes", false, "list processes under the table")
	set.IntVar(&flags.barWidth, "bar-width", defaults.Output.BarWidth, "cells per device bar")
	set.IntVar(&flags.hostWidth, "host-width", defaults.Output.HostWidth, "width of the host column")
	set.StringVar(&flags.dumpHost, "dump", "", "print one host's normalized device report as JSON and exit")
	set.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug detail to stderr")
	set.BoolVarP(&flags.help, "help", "h", false, "show help")

	if err := set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flags.help = true
			return flags, nil
		}
		return nil, &process.UsageError{Err: err}
	}
	if set.NArg() > 0 {
		return nil, process.Usage("unexpected argument: %s", set.Arg(0))
	}
	return flags, nil
}

// resolveConfig loads the configuration file, applies explicitly set
// flags over it, and validates the result.
func (f *commandFlags) resolveConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	changed := f.set.Changed
	if changed("ssh-config") {
		cfg.SSHConfig = f.sshConfig
	}
	if changed("host") {
		cfg.Hosts = f.hosts
	}
	if changed("max-workers") {
		cfg.MaxWorkers = f.maxWorkers
	}
	if changed("timeout") {
		cfg.Timeouts.Device = f.timeout.String()
	}
	if changed("owner-timeout") {
		cfg.Timeouts.Owner = f.ownerTimeout.String()
	}
	if changed("transport") {
		cfg.Transport.Kind = f.transport
	}
	if changed("known-hosts") {
		cfg.Transport.KnownHosts = f.knownHosts
	}
	if changed("insecure-ignore-host-key") {
		cfg.Transport.InsecureIgnoreHostKey = f.insecure
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("processes") {
		cfg.Output.Processes = f.processes
	}
	if changed("bar-width") {
		cfg.Output.BarWidth = f.barWidth
	}
	if changed("host-width") {
		cfg.Output.HostWidth = f.hostWidth
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	// Handle --version before flag parsing to match other binaries.
	if len(args) > 0 && args[0] == "--version" {
		version.Fprint(stdout, "gpuwatch")
		return nil
	}

	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	if flags.help {
		printHelp(stderr, flags.set)
		return nil
	}

	cfg, err := flags.resolveConfig()
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, flags.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	executor, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}

	if flags.dumpHost != "" {
		return dump(ctx, executor, flags.dumpHost, cfg.DeviceTimeout(), stdout)
	}

	hosts, err := resolveHosts(cfg)
	if err != nil {
		return err
	}
	logger.Debug("polling fleet",
		"hosts", len(hosts),
		"max_workers", cfg.MaxWorkers,
		"transport", cfg.Transport.Kind,
	)

	snapshot := pollFleet(ctx, cfg, executor, hosts, logger)
	return render.Write(stdout, format, snapshot, tableOptions(cfg, stdout))
}

// resolveHosts returns the configured hosts, or discovers them from
// the ssh client config.
func resolveHosts(cfg *config.Config) ([]string, error) {
	if len(cfg.Hosts) > 0 {
		return cfg.Hosts, nil
	}
	hosts, err := hostlist.Discover(cfg.SSHConfig)
	if err != nil {
		return nil, fmt.Errorf("discovering hosts: %w", err)
	}
	return hosts, nil
}

func pollFleet(ctx context.Context, cfg *config.Config, executor remote.Executor, hosts []string, logger *slog.Logger) schema.FleetSnapshot {
	poller := &fleet.Poller{
		Builder: &fleet.Builder{
			Executor:      executor,
			DeviceTimeout: cfg.DeviceTimeout(),
			OwnerTimeout:  cfg.OwnerTimeout(),
			Logger:        logger,
		},
		Concurrency: cfg.MaxWorkers,
		Logger:      logger,
	}
	return poller.Poll(ctx, hosts)
}

// dump prints the normalized form of one host's device report. It is
// the raw material the snapshot extractor reads, useful when a driver
// reports a shape the extractor rejects.
func dump(ctx context.Context, executor remote.Executor, host string, timeout time.Duration, stdout io.Writer) error {
	output, err := executor.Execute(ctx, host, smi.DeviceQueryCommand, timeout)
	if err != nil {
		return fmt.Errorf("querying %s: %w", host, err)
	}
	normalized, err := report.Decode([]byte(output))
	if err != nil {
		return fmt.Errorf("%s: %w", host, err)
	}
	return render.JSON(stdout, normalized)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `gpuwatch: GPU memory and process ownership across a fleet of SSH hosts.

By default every concrete Host alias in ~/.ssh/config is polled. Each
host runs "nvidia-smi -q -x" and, when GPU processes are running, one
batched ps lookup to find their owners. Hosts that fail or time out show
"no data".

Usage:
  gpuwatch [flags]

Examples:
  # Poll every host in ~/.ssh/config
  gpuwatch

  # Poll two hosts, list processes, and allow slow drivers more time
  gpuwatch --host gpu01 --host gpu02 --processes --timeout 5s

  # Machine-readable snapshot
  gpuwatch --format json

  # Inspect what one host's driver reports
  gpuwatch --dump gpu01

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
