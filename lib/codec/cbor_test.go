// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/gpuwatch/lib/schema"
)

func sampleSnapshot() schema.FleetSnapshot {
	return schema.FleetSnapshot{
		CollectedAt: time.Date(2026, 10, 17, 9, 30, 0, 250_000_000, time.UTC),
		Hosts: []schema.HostSnapshot{
			{
				Host: "gpu01",
				Report: schema.HostReport{
					"cuda:1": {
						DriverVersion: "550.54.15",
						CUDAVersion:   "12.4",
						Memory:        schema.MemoryUsage{Total: 8000, Used: 0, Free: 8000},
						Processes:     []schema.ProcessUsage{},
					},
					"cuda:0": {
						DriverVersion: "550.54.15",
						CUDAVersion:   "12.4",
						Memory:        schema.MemoryUsage{Total: 8000, Used: 2000, Free: 6000},
						Processes:     []schema.ProcessUsage{{PID: "55", UsedMemory: 500, User: "root"}},
					},
				},
				DurationMillis: 180,
			},
			{Host: "gpu02", Report: schema.HostReport{}, Error: "gpu02 after 2s: remote command timed out"},
		},
	}
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleSnapshot()

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded schema.FleetSnapshot
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.CollectedAt.Equal(original.CollectedAt) {
		t.Errorf("CollectedAt = %v, want %v", decoded.CollectedAt, original.CollectedAt)
	}
	decoded.CollectedAt = original.CollectedAt
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(sampleSnapshot())
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding the same snapshot produced different bytes")
		}
	}
}

func TestJSONTagNames(t *testing.T) {
	data, err := Marshal(sampleSnapshot())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var generic map[string]any
	if err := Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := generic["collected_at"]; !ok {
		t.Errorf("top-level keys = %v, want collected_at", generic)
	}
	hosts, ok := generic["hosts"].([]any)
	if !ok || len(hosts) != 2 {
		t.Fatalf("hosts = %#v", generic["hosts"])
	}
	first, ok := hosts[0].(map[string]any)
	if !ok {
		t.Fatalf("host entry is %T, want map[string]any", hosts[0])
	}
	if _, ok := first["duration_ms"]; !ok {
		t.Errorf("host keys = %v, want duration_ms", first)
	}
	report, ok := first["report"].(map[string]any)
	if !ok {
		t.Fatalf("report is %T, want map[string]any", first["report"])
	}
	if _, ok := report["cuda:0"]; !ok {
		t.Errorf("report keys = %v, want cuda:0", report)
	}

	// Tag 0 (0xc0) followed by a 23-byte text string (0x77).
	timestamp := append([]byte{0xc0, 0x77}, "2026-10-17T09:30:00.25Z"...)
	if !bytes.Contains(data, timestamp) {
		t.Errorf("expected tag-0 RFC 3339 timestamp in % x", data)
	}
}

func TestEncoderMatchesMarshal(t *testing.T) {
	snapshot := sampleSnapshot()
	want, err := Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var buffer bytes.Buffer
	if err := NewEncoder(&buffer).Encode(snapshot); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buffer.Bytes(), want) {
		t.Error("stream encoding differs from Marshal")
	}
}
