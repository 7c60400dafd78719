// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"time"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

// defaultOSThreadLimit is the runtime's default ceiling on OS threads
// (debug.SetMaxThreads). The runtime offers no getter, so the sampler
// reports the documented default.
const defaultOSThreadLimit = 10000

const (
	metricGCCyclesAutomatic = "/gc/cycles/automatic:gc-cycles"
	metricGCCyclesForced    = "/gc/cycles/forced:gc-cycles"
	metricGCCyclesTotal     = "/gc/cycles/total:gc-cycles"
	metricHeapAllocsBytes   = "/gc/heap/allocs:bytes"
)

// collectGCStats reads collector statistics from the runtime. The cycle
// counters and cumulative allocation total come from runtime/metrics
// and are monotonic for the process lifetime; the pause percentage is a
// continuously updated gauge owned by the counter listener.
//
// Fragmentation is the share of in-use heap spans not occupied by live
// objects. Go's collector runs concurrently whenever it is enabled.
func collectGCStats(listener *diag.RuntimeCounterListener) diag.GCStats {
	samples := []metrics.Sample{
		{Name: metricGCCyclesAutomatic},
		{Name: metricGCCyclesForced},
		{Name: metricGCCyclesTotal},
		{Name: metricHeapAllocsBytes},
	}
	metrics.Read(samples)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var fragmentation float64
	if ms.HeapInuse > 0 && ms.HeapInuse > ms.HeapAlloc {
		fragmentation = float64(ms.HeapInuse-ms.HeapAlloc) / float64(ms.HeapInuse) * 100.0
	}

	return diag.GCStats{
		Gen0Collections:             sampleUint64(samples[0]),
		Gen1Collections:             sampleUint64(samples[1]),
		Gen2Collections:             sampleUint64(samples[2]),
		TotalGCPauseMsPercentage:    listener.GCPausePercent(),
		HeapFragmentationPercentage: diag.ClampPercent(fragmentation),
		TotalAllocatedBytes:         sampleUint64(samples[3]),
		IsGCConcurrentEnabled:       true,
		CollectedAt:                 time.Now(),
	}
}

// collectThreadPoolStats reads worker-pool state from the scheduler.
// Queued and completed work-item counts come from the counter listener;
// the scheduler exposes neither as a synchronous query.
func collectThreadPoolStats(listener *diag.RuntimeCounterListener) diag.ThreadPoolStats {
	workers := osThreadCount()
	minWorkers := runtime.GOMAXPROCS(0)
	maxWorkers := defaultOSThreadLimit
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	available := maxWorkers - workers
	if available < 0 {
		available = 0
	}

	return diag.ThreadPoolStats{
		WorkerThreadCount:      workers,
		AvailableWorkerThreads: available,
		IOThreadCount:          workers,
		AvailableIOThreads:     available,
		QueuedWorkItemCount:    listener.QueuedWorkItems(),
		CompletedWorkItemCount: listener.CompletedWorkItems(),
		MinWorkerThreads:       minWorkers,
		MaxWorkerThreads:       maxWorkers,
		CollectedAt:            time.Now(),
	}
}

// osThreadCount returns the number of OS threads the runtime has
// created. Go parks idle threads instead of destroying them, so the
// threadcreate profile count tracks the live thread count closely.
func osThreadCount() int {
	if p := pprof.Lookup("threadcreate"); p != nil {
		return p.Count()
	}
	return runtime.GOMAXPROCS(0)
}

// managedHeapBytes returns the bytes of live heap currently allocated.
func managedHeapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

func sampleUint64(s metrics.Sample) uint64 {
	if s.Value.Kind() == metrics.KindUint64 {
		return s.Value.Uint64()
	}
	return 0
}
