// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/gpuwatch/lib/config"
	"github.com/bureau-foundation/gpuwatch/lib/hostlist"
	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/render"
)

// newExecutor builds the remote executor selected by transport.kind.
// Paths are expanded here, once, immediately before use.
func newExecutor(cfg *config.Config, logger *slog.Logger) (remote.Executor, error) {
	sshConfig, err := hostlist.ExpandPath(cfg.SSHConfig)
	if err != nil {
		return nil, err
	}

	switch cfg.Transport.Kind {
	case "native":
		// Explicit hosts need no client config; a missing default
		// file only disables alias resolution.
		if _, statErr := os.Stat(sshConfig); errors.Is(statErr, fs.ErrNotExist) && len(cfg.Hosts) > 0 {
			logger.Debug("ssh config not found; dialing hosts by name", "path", sshConfig)
			sshConfig = ""
		}
		knownHosts := ""
		if !cfg.Transport.InsecureIgnoreHostKey {
			if knownHosts, err = hostlist.ExpandPath(cfg.Transport.KnownHosts); err != nil {
				return nil, err
			}
		}
		executor, err := remote.NewNativeExecutor(remote.NativeOptions{
			ConfigFile:            sshConfig,
			KnownHostsFile:        knownHosts,
			InsecureIgnoreHostKey: cfg.Transport.InsecureIgnoreHostKey,
			Logger:                logger,
		})
		if err != nil {
			return nil, fmt.Errorf("native transport: %w", err)
		}
		return executor, nil
	case "exec":
		// The ssh client reads its default config by itself; -F is
		// only passed for a different file, since it also suppresses
		// the system-wide config.
		configFile := ""
		if cfg.SSHConfig != config.Default().SSHConfig {
			configFile = sshConfig
		}
		return remote.NewCommandExecutor(configFile, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

// tableOptions colors the table only when stdout is a terminal.
func tableOptions(cfg *config.Config, stdout io.Writer) render.TableOptions {
	profile := termenv.Ascii
	if isTerminal(stdout) {
		profile = termenv.EnvColorProfile()
	}
	return render.TableOptions{
		BarWidth:  cfg.Output.BarWidth,
		HostWidth: cfg.Output.HostWidth,
		Processes: cfg.Output.Processes,
		Profile:   profile,
	}
}
