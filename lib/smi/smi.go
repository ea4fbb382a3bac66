// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package smi extracts per-device memory and per-process GPU memory
// usage from a remote host's `nvidia-smi -q -x` report.
//
// The XML report is normalized by lib/report. Two fields repeat in
// the report and collapse to a bare record when they occur once: the
// <gpu> element (one per device) and <process_info> (one per process
// under a device's <processes>). Both are re-expanded with report.List
// before iteration, so a single-GPU host or a device running a single
// process produces the same shape as the general case.
package smi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/gpuwatch/lib/remote"
	"github.com/bureau-foundation/gpuwatch/lib/report"
	"github.com/bureau-foundation/gpuwatch/lib/schema"
)

// DeviceQueryCommand dumps the full device report as XML.
const DeviceQueryCommand = "nvidia-smi -q -x"

// DefaultTimeout bounds the device query on one host.
const DefaultTimeout = 2 * time.Second

// ErrMalformedReport is returned (wrapped) when the report is not XML
// or lacks a field the extractor requires.
var ErrMalformedReport = errors.New("malformed device report")

// Extract runs the device query on host and parses the result. The
// returned pids are the distinct process ids seen across all devices,
// in first-seen order. On any failure the report is empty and the pid
// list is nil.
func Extract(ctx context.Context, executor remote.Executor, host string, timeout time.Duration) (schema.HostReport, []string, error) {
	output, err := executor.Execute(ctx, host, DeviceQueryCommand, timeout)
	if err != nil {
		return schema.HostReport{}, nil, fmt.Errorf("device query: %w", err)
	}
	hostReport, pids, err := ParseReport([]byte(output))
	if err != nil {
		return schema.HostReport{}, nil, err
	}
	return hostReport, pids, nil
}

// ParseReport converts raw `nvidia-smi -q -x` output into a HostReport
// and the distinct pids it mentions. Device ids must be unique within
// a report; two devices with the same minor number (nvidia-smi prints
// "N/A" for every device on some platforms) make the report malformed.
func ParseReport(data []byte) (schema.HostReport, []string, error) {
	decoded, err := report.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	log, err := decoded.Record("nvidia_smi_log")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	driverVersion, err := log.String("driver_version")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	cudaVersion, err := log.String("cuda_version")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	hostReport := schema.HostReport{}
	var pids []string
	seen := make(map[string]bool)

	for position, entry := range log.List("gpu") {
		gpu, ok := entry.(*report.Record)
		if !ok {
			return nil, nil, fmt.Errorf("%w: gpu entry %d is %T, not a record", ErrMalformedReport, position, entry)
		}
		deviceID, device, err := parseDevice(gpu)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: gpu entry %d: %w", ErrMalformedReport, position, err)
		}
		if _, exists := hostReport[deviceID]; exists {
			return nil, nil, fmt.Errorf("%w: gpu entry %d repeats device id %s", ErrMalformedReport, position, deviceID)
		}
		device.DriverVersion = driverVersion
		device.CUDAVersion = cudaVersion

		for _, process := range device.Processes {
			if !seen[process.PID] {
				seen[process.PID] = true
				pids = append(pids, process.PID)
			}
		}
		hostReport[deviceID] = device
	}

	return hostReport, pids, nil
}

// parseDevice extracts one <gpu> element. Driver and CUDA versions are
// report-wide and filled in by the caller.
func parseDevice(gpu *report.Record) (string, schema.DeviceSnapshot, error) {
	minorNumber, err := gpu.String("minor_number")
	if err != nil {
		return "", schema.DeviceSnapshot{}, err
	}

	memoryRecord, err := gpu.Record("fb_memory_usage")
	if err != nil {
		return "", schema.DeviceSnapshot{}, err
	}
	memory, err := parseMemory(memoryRecord)
	if err != nil {
		return "", schema.DeviceSnapshot{}, fmt.Errorf("fb_memory_usage: %w", err)
	}

	processes, err := parseProcesses(gpu)
	if err != nil {
		return "", schema.DeviceSnapshot{}, err
	}

	device := schema.DeviceSnapshot{
		Memory:    memory,
		Processes: processes,
	}
	device.ProductName, _ = gpu.String("product_name")
	device.UUID, _ = gpu.String("uuid")

	return schema.DeviceID(minorNumber), device, nil
}

func parseMemory(record *report.Record) (schema.MemoryUsage, error) {
	var memory schema.MemoryUsage
	required := []struct {
		key    string
		target *int64
	}{
		{"total", &memory.Total},
		{"used", &memory.Used},
		{"free", &memory.Free},
	}
	for _, field := range required {
		value, err := record.String(field.key)
		if err != nil {
			return schema.MemoryUsage{}, err
		}
		*field.target, err = ParseQuantity(value)
		if err != nil {
			return schema.MemoryUsage{}, fmt.Errorf("%s: %w", field.key, err)
		}
	}
	if value, err := record.String("reserved"); err == nil {
		if reserved, err := ParseQuantity(value); err == nil {
			memory.Reserved = reserved
		}
	}
	return memory, nil
}

// parseProcesses reads <processes><process_info>... for one device.
// An absent or empty <processes> element yields an empty, non-nil list.
func parseProcesses(gpu *report.Record) ([]schema.ProcessUsage, error) {
	processes := []schema.ProcessUsage{}

	value, _ := gpu.Get("processes")
	container, ok := value.(*report.Record)
	if !ok {
		// Absent, or an empty/"N/A" leaf.
		return processes, nil
	}

	for position, entry := range container.List("process_info") {
		info, ok := entry.(*report.Record)
		if !ok {
			return nil, fmt.Errorf("process entry %d is %T, not a record", position, entry)
		}
		pid, err := info.String("pid")
		if err != nil {
			return nil, fmt.Errorf("process entry %d: %w", position, err)
		}
		usedText, err := info.String("used_memory")
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", pid, err)
		}
		used, err := ParseQuantity(usedText)
		if err != nil {
			return nil, fmt.Errorf("process %s used_memory: %w", pid, err)
		}
		name, _ := info.String("process_name")
		processes = append(processes, schema.ProcessUsage{
			PID:        pid,
			UsedMemory: used,
			Name:       name,
		})
	}
	return processes, nil
}

// ParseQuantity parses values of the form "<integer> <unit>" and
// returns the integer. The unit is discarded without conversion;
// nvidia-smi reports every memory figure in MiB.
func ParseQuantity(value string) (int64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty quantity")
	}
	number, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", value, err)
	}
	return number, nil
}
