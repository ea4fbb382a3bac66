// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// DeviceIDPrefix prefixes the driver-reported minor number to form a
// device identifier ("cuda:0", "cuda:1", ...).
const DeviceIDPrefix = "cuda:"

// MemoryUsage is framebuffer memory for one device, in the unit the
// driver reports (MiB for nvidia-smi).
type MemoryUsage struct {
	Total int64 `json:"total" yaml:"total"`
	Used  int64 `json:"used" yaml:"used"`
	Free  int64 `json:"free" yaml:"free"`

	// Reserved is memory held back by the driver. Only newer drivers
	// report it; zero when absent.
	Reserved int64 `json:"reserved,omitempty" yaml:"reserved,omitempty"`
}

// UsedFraction returns Used/Total in [0, 1]. A device reporting zero
// total memory yields 0.
func (m MemoryUsage) UsedFraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	fraction := float64(m.Used) / float64(m.Total)
	if fraction > 1 {
		return 1
	}
	if fraction < 0 {
		return 0
	}
	return fraction
}

// ProcessUsage is one process holding device memory.
type ProcessUsage struct {
	// PID is the process id as the driver reported it. The process may
	// have exited by the time anything else looks at it.
	PID string `json:"pid" yaml:"pid"`

	// UsedMemory is the device memory attributed to the process.
	UsedMemory int64 `json:"used_memory" yaml:"used_memory"`

	// User is the owning username. Empty when owner resolution failed
	// for the host or did not find this pid.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// Name is the process name reported by the driver, when present.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// DeviceSnapshot is one GPU on one host at one point in time.
type DeviceSnapshot struct {
	DriverVersion string `json:"driver_version" yaml:"driver_version"`
	CUDAVersion   string `json:"cuda_version" yaml:"cuda_version"`
	ProductName   string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	UUID          string `json:"uuid,omitempty" yaml:"uuid,omitempty"`

	Memory MemoryUsage `json:"memory" yaml:"memory"`

	// Processes is never nil for a constructed snapshot; a device with
	// no running processes has an empty list.
	Processes []ProcessUsage `json:"processes" yaml:"processes"`
}

// HostReport maps device identifiers to snapshots for one host. An
// empty report means the host contributed no data: unreachable, the
// device query failed, or the host has no devices.
type HostReport map[string]DeviceSnapshot

// DeviceID builds a device identifier from a driver minor number.
func DeviceID(minorNumber string) string {
	return DeviceIDPrefix + minorNumber
}

// DeviceIndex parses the numeric index out of a device identifier.
func DeviceIndex(deviceID string) (int, bool) {
	suffix, found := strings.CutPrefix(deviceID, DeviceIDPrefix)
	if !found {
		return 0, false
	}
	index, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return index, true
}

// DeviceIDs returns the report's device identifiers ordered by numeric
// index. Identifiers without a numeric index sort after the numbered
// ones, lexically.
func (r HostReport) DeviceIDs() []string {
	identifiers := make([]string, 0, len(r))
	for identifier := range r {
		identifiers = append(identifiers, identifier)
	}
	sort.Slice(identifiers, func(i, j int) bool {
		left, leftNumbered := DeviceIndex(identifiers[i])
		right, rightNumbered := DeviceIndex(identifiers[j])
		switch {
		case leftNumbered && rightNumbered:
			return left < right
		case leftNumbered != rightNumbered:
			return leftNumbered
		default:
			return identifiers[i] < identifiers[j]
		}
	})
	return identifiers
}

// HostSnapshot is one slot of a fleet poll.
type HostSnapshot struct {
	Host   string     `json:"host" yaml:"host"`
	Report HostReport `json:"report" yaml:"report"`

	// Error describes why the report is empty or degraded. Empty when
	// the device query succeeded.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// DurationMillis is how long the host's queries took.
	DurationMillis int64 `json:"duration_ms" yaml:"duration_ms"`
}

// FleetSnapshot is the result of one fleet poll. Hosts has exactly one
// entry per polled host, in the order the hosts were given.
type FleetSnapshot struct {
	CollectedAt time.Time      `json:"collected_at" yaml:"collected_at"`
	Hosts       []HostSnapshot `json:"hosts" yaml:"hosts"`
}

// MaxDevices returns the largest device count of any host.
func (s FleetSnapshot) MaxDevices() int {
	maximum := 0
	for _, host := range s.Hosts {
		maximum = max(maximum, len(host.Report))
	}
	return maximum
}
