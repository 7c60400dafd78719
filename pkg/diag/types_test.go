// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	collected := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	snap := diag.Snapshot{
		CPUUsage: &diag.CPUUsage{
			PercentageUsed:       58.33,
			TotalProcessorTimeMs: 1500,
			UserModeTimeMs:       1000,
			KernelModeTimeMs:     500,
			ProcessorCount:       8,
			CollectedAt:          collected,
		},
		MemorySnapshot: &diag.MemorySnapshot{
			TotalSystemMemoryBytes:     16 << 30,
			AvailableSystemMemoryBytes: 4 << 30,
			ProcessWorkingSetBytes:     512 << 20,
			ProcessPrivateMemoryBytes:  256 << 20,
			ManagedHeapBytes:           128 << 20,
			ProcessVirtualMemoryBytes:  2 << 30,
			MemoryPressurePercentage:   75,
			CollectedAt:                collected,
		},
		GCStats: &diag.GCStats{
			Gen0Collections:             120,
			Gen1Collections:             3,
			Gen2Collections:             123,
			TotalGCPauseMsPercentage:    1.25,
			HeapFragmentationPercentage: 12.5,
			TotalAllocatedBytes:         10 << 30,
			IsGCConcurrentEnabled:       true,
			CollectedAt:                 collected,
		},
		ThreadPoolStats: &diag.ThreadPoolStats{
			WorkerThreadCount:      12,
			AvailableWorkerThreads: 9988,
			IOThreadCount:          12,
			AvailableIOThreads:     9988,
			QueuedWorkItemCount:    42,
			CompletedWorkItemCount: 100000,
			MinWorkerThreads:       8,
			MaxWorkerThreads:       10000,
			CollectedAt:            collected,
		},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var got diag.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, snap, got)
}

func TestSnapshot_JSONKeysAreCaseInsensitive(t *testing.T) {
	// Consumers of the metrics file are case-insensitive on read;
	// encoding/json matches keys case-insensitively by default.
	input := `{
		"CPUUSAGE": {"PERCENTAGEUSED": 42.5, "processorcount": 4},
		"memorysnapshot": {"TotalSystemMemoryBytes": 1024, "AVAILABLESYSTEMMEMORYBYTES": 512},
		"GcStats": {"gen0collections": 7},
		"threadpoolstats": {"MINWORKERTHREADS": 2, "maxworkerthreads": 100}
	}`

	var got diag.Snapshot
	require.NoError(t, json.Unmarshal([]byte(input), &got))

	require.NotNil(t, got.CPUUsage)
	assert.Equal(t, 42.5, got.CPUUsage.PercentageUsed)
	assert.Equal(t, 4, got.CPUUsage.ProcessorCount)

	require.NotNil(t, got.MemorySnapshot)
	assert.Equal(t, uint64(1024), got.MemorySnapshot.TotalSystemMemoryBytes)
	assert.Equal(t, uint64(512), got.MemorySnapshot.AvailableSystemMemoryBytes)

	require.NotNil(t, got.GCStats)
	assert.Equal(t, uint64(7), got.GCStats.Gen0Collections)

	require.NotNil(t, got.ThreadPoolStats)
	assert.Equal(t, 2, got.ThreadPoolStats.MinWorkerThreads)
	assert.Equal(t, 100, got.ThreadPoolStats.MaxWorkerThreads)
}

func TestSnapshot_MissingSectionsStayNil(t *testing.T) {
	var got diag.Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"cpuUsage": {"percentageUsed": 1}}`), &got))
	assert.NotNil(t, got.CPUUsage)
	assert.Nil(t, got.MemorySnapshot)
	assert.Nil(t, got.GCStats)
	assert.Nil(t, got.ThreadPoolStats)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "memorySnapshot")
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, diag.ClampPercent(-5))
	assert.Equal(t, 100.0, diag.ClampPercent(250))
	assert.Equal(t, 33.3, diag.ClampPercent(33.3))
}
