// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/gpuwatch/lib/clock"
	"github.com/bureau-foundation/gpuwatch/lib/schema"
)

// DefaultConcurrency is the number of hosts polled at once when the
// caller does not choose.
const DefaultConcurrency = 4

// Poller runs a ReportBuilder across a list of hosts.
type Poller struct {
	Builder ReportBuilder

	// Concurrency caps in-flight hosts. Values below 1 mean 1.
	Concurrency int

	// Clock stamps the snapshot and times each host. Defaults to
	// clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Poll builds a report for every host and returns them in input order.
// The result always has len(hosts) entries. Poll never fails: per-host
// problems are recorded in the host's slot. Cancelling ctx makes hosts
// that have not started yet report the cancellation instead of
// contacting the remote.
func (p *Poller) Poll(ctx context.Context, hosts []string) schema.FleetSnapshot {
	snapshot := schema.FleetSnapshot{
		CollectedAt: p.clock().Now(),
		Hosts:       make([]schema.HostSnapshot, len(hosts)),
	}

	var group errgroup.Group
	group.SetLimit(max(p.Concurrency, 1))
	for index, host := range hosts {
		group.Go(func() error {
			snapshot.Hosts[index] = p.pollHost(ctx, host)
			return nil
		})
	}
	// Tasks never return errors.
	_ = group.Wait()

	return snapshot
}

// pollHost runs the builder for one host, isolating the caller from
// errors and panics.
func (p *Poller) pollHost(ctx context.Context, host string) (result schema.HostSnapshot) {
	logger := p.logger().With("host", host)
	started := p.clock().Now()
	result = schema.HostSnapshot{Host: host, Report: schema.HostReport{}}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Report = schema.HostReport{}
			result.Error = fmt.Sprintf("panic while building report: %v", recovered)
			logger.Error("host report panicked", "panic", recovered)
		}
		result.DurationMillis = p.clock().Since(started).Milliseconds()
	}()

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	hostReport, err := p.Builder.Build(ctx, host)
	if hostReport != nil {
		result.Report = hostReport
	}
	if err != nil {
		result.Report = schema.HostReport{}
		result.Error = err.Error()
		logger.Warn("no GPU data from host", "error", err)
	}
	return result
}

func (p *Poller) clock() clock.Clock {
	if p.Clock == nil {
		return clock.Real()
	}
	return p.Clock
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
