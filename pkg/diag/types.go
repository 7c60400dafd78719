// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"time"
)

// MetricKind identifies one of the four runtime health metric families.
type MetricKind string

const (
	MetricKindCPU        MetricKind = "cpu"
	MetricKindMemory     MetricKind = "memory"
	MetricKindGC         MetricKind = "gc"
	MetricKindThreadPool MetricKind = "threadpool"
)

// MetricKinds lists every supported metric kind in a stable order.
func MetricKinds() []MetricKind {
	return []MetricKind{MetricKindCPU, MetricKindMemory, MetricKindGC, MetricKindThreadPool}
}

// CPUUsage is a point-in-time reading of process and system CPU consumption.
//
// PercentageUsed is always within [0, 100]. On tick-counter platforms
// (Linux, Android) it is system-wide utilization derived from two
// consecutive /proc/stat readings; on wall-clock platforms (Apple,
// Windows) it is process CPU time over wall time normalized by the
// processor count. The time fields are cumulative process CPU times.
type CPUUsage struct {
	PercentageUsed       float64   `json:"percentageUsed"`
	TotalProcessorTimeMs float64   `json:"totalProcessorTimeMs"`
	UserModeTimeMs       float64   `json:"userModeTimeMs"`
	KernelModeTimeMs     float64   `json:"kernelModeTimeMs"`
	ProcessorCount       int       `json:"processorCount"`
	CollectedAt          time.Time `json:"collectedAt"`
}

// MemorySnapshot combines system-wide and process-level memory figures.
//
// System totals come from the best source the platform offers
// (/proc/meminfo, host virtual-memory statistics, GlobalMemoryStatusEx).
// When the platform cannot provide them they are reported as zero and
// MemoryPressurePercentage is zero, never invented.
type MemorySnapshot struct {
	TotalSystemMemoryBytes     uint64    `json:"totalSystemMemoryBytes"`
	AvailableSystemMemoryBytes uint64    `json:"availableSystemMemoryBytes"`
	ProcessWorkingSetBytes     uint64    `json:"processWorkingSetBytes"`
	ProcessPrivateMemoryBytes  uint64    `json:"processPrivateMemoryBytes"`
	ManagedHeapBytes           uint64    `json:"managedHeapBytes"`
	ProcessVirtualMemoryBytes  uint64    `json:"processVirtualMemoryBytes"`
	MemoryPressurePercentage   float64   `json:"memoryPressurePercentage"`
	CollectedAt                time.Time `json:"collectedAt"`
}

// GCStats reports collector activity of the managed runtime.
//
// Go's collector is not generational, so the three generation counters
// are mapped onto the closest monotonic cycle counters the runtime
// exposes: automatic cycles, forced cycles, and total cycles. All three
// never decrease within a process lifetime, as does TotalAllocatedBytes.
type GCStats struct {
	Gen0Collections             uint64    `json:"gen0Collections"`
	Gen1Collections             uint64    `json:"gen1Collections"`
	Gen2Collections             uint64    `json:"gen2Collections"`
	TotalGCPauseMsPercentage    float64   `json:"totalGcPauseMsPercentage"`
	HeapFragmentationPercentage float64   `json:"heapFragmentationPercentage"`
	TotalAllocatedBytes         uint64    `json:"totalAllocatedBytes"`
	IsGCConcurrentEnabled       bool      `json:"isGcConcurrentEnabled"`
	CollectedAt                 time.Time `json:"collectedAt"`
}

// ThreadPoolStats reports worker-pool state of the runtime scheduler.
//
// The Go scheduler has no separate I/O completion pool; the I/O fields
// mirror the worker pool. QueuedWorkItemCount approximates run-queue
// depth with the live goroutine count, and CompletedWorkItemCount is a
// monotonic count of completed scheduling events.
type ThreadPoolStats struct {
	WorkerThreadCount      int       `json:"workerThreadCount"`
	AvailableWorkerThreads int       `json:"availableWorkerThreads"`
	IOThreadCount          int       `json:"ioThreadCount"`
	AvailableIOThreads     int       `json:"availableIoThreads"`
	QueuedWorkItemCount    uint64    `json:"queuedWorkItemCount"`
	CompletedWorkItemCount uint64    `json:"completedWorkItemCount"`
	MinWorkerThreads       int       `json:"minWorkerThreads"`
	MaxWorkerThreads       int       `json:"maxWorkerThreads"`
	CollectedAt            time.Time `json:"collectedAt"`
}

// Snapshot is the JSON document shape shared with external consumers:
// one object with four keys, each holding one metric snapshot. Missing
// sections stay nil and are omitted on write.
type Snapshot struct {
	CPUUsage        *CPUUsage        `json:"cpuUsage,omitempty"`
	MemorySnapshot  *MemorySnapshot  `json:"memorySnapshot,omitempty"`
	GCStats         *GCStats         `json:"gcStats,omitempty"`
	ThreadPoolStats *ThreadPoolStats `json:"threadPoolStats,omitempty"`
}

// MemoryPressure computes the percentage of system memory in use,
// clamped to [0, 100]. It reports 0 when the total is unknown so a
// missing reading is never mistaken for a healthy one.
func MemoryPressure(totalBytes, availableBytes uint64) float64 {
	if totalBytes == 0 {
		return 0
	}
	if availableBytes > totalBytes {
		return 0
	}
	used := float64(totalBytes-availableBytes) / float64(totalBytes) * 100.0
	return ClampPercent(used)
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
