// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/gpuwatch/lib/owner"
	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/schema"
	"github.com/bureau-foundation/gpuwatch/lib/smi"
)

// ReportBuilder produces the report for one host. An error means the
// host contributed no device data; the returned report is then empty
// but non-nil.
type ReportBuilder interface {
	Build(ctx context.Context, host string) (schema.HostReport, error)
}

// Builder composes the device query and the owner query for one host.
type Builder struct {
	Executor remote.Executor

	// DeviceTimeout bounds the device query. Zero uses smi.DefaultTimeout.
	DeviceTimeout time.Duration

	// OwnerTimeout bounds the owner query. Zero uses owner.DefaultTimeout.
	OwnerTimeout time.Duration

	Logger *slog.Logger
}

// Build implements [ReportBuilder]. Device and owner queries run
// sequentially; owner failures degrade the report and are not returned.
func (b *Builder) Build(ctx context.Context, host string) (schema.HostReport, error) {
	logger := b.logger().With("host", host)

	hostReport, pids, err := smi.Extract(ctx, b.Executor, host, durationOr(b.DeviceTimeout, smi.DefaultTimeout))
	if err != nil {
		return schema.HostReport{}, err
	}
	if len(hostReport) == 0 || len(pids) == 0 {
		return hostReport, nil
	}

	owners, err := owner.Resolve(ctx, b.Executor, host, pids, durationOr(b.OwnerTimeout, owner.DefaultTimeout))
	if err != nil {
		logger.Warn("process owner resolution failed; reporting processes without users",
			"pids", len(pids),
			"error", err,
		)
		return hostReport, nil
	}

	attachOwners(hostReport, owners)
	logger.Debug("host report built",
		"devices", len(hostReport),
		"pids", len(pids),
		"resolved", len(owners),
	)
	return hostReport, nil
}

// attachOwners sets User on every process whose pid resolved. Pids
// absent from owners are left without a user.
func attachOwners(hostReport schema.HostReport, owners map[string]string) {
	for _, device := range hostReport {
		for index := range device.Processes {
			if user, ok := owners[device.Processes[index].PID]; ok {
				device.Processes[index].User = user
			}
		}
	}
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
