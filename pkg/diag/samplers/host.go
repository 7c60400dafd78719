// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

// hostSampler is the shared base for platforms without a procfs tick
// counter (Apple family, Windows). CPU usage is wall-clock based:
// cumulative process CPU time over elapsed wall time, normalized by the
// processor count. gopsutil supplies the native per-process calls.
type hostSampler struct {
	logger   logr.Logger
	listener *diag.RuntimeCounterListener
	proc     *process.Process

	mu   sync.Mutex
	wall diag.WallClockDelta
}

func newHostSampler(logger logr.Logger, config diag.Config) (*hostSampler, error) {
	config = config.WithDefaults()
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("%w: resolving current process: %v", diag.ErrSourceUnavailable, err)
	}
	return &hostSampler{
		logger:   logger,
		listener: config.Listener,
		proc:     proc,
	}, nil
}

// SampleCPU reads cumulative process CPU time and derives usage from
// the delta against the previous reading.
func (s *hostSampler) SampleCPU(ctx context.Context) (diag.CPUUsage, error) {
	if err := ctx.Err(); err != nil {
		return diag.CPUUsage{}, err
	}

	times, err := s.proc.TimesWithContext(ctx)
	if err != nil {
		return diag.CPUUsage{}, fmt.Errorf("%w: reading process CPU times: %v", diag.ErrSourceUnavailable, err)
	}
	cpuTime := time.Duration((times.User + times.System) * float64(time.Second))
	processors := runtime.NumCPU()

	s.mu.Lock()
	usage := s.wall.Update(time.Now(), cpuTime, processors)
	s.mu.Unlock()

	return diag.CPUUsage{
		PercentageUsed:       usage,
		TotalProcessorTimeMs: (times.User + times.System) * 1000,
		UserModeTimeMs:       times.User * 1000,
		KernelModeTimeMs:     times.System * 1000,
		ProcessorCount:       processors,
		CollectedAt:          time.Now(),
	}, nil
}

// SampleGC reads collector statistics from the runtime.
func (s *hostSampler) SampleGC(ctx context.Context) (diag.GCStats, error) {
	if err := ctx.Err(); err != nil {
		return diag.GCStats{}, err
	}
	return collectGCStats(s.listener), nil
}

// SampleThreadPool reads scheduler worker-pool statistics.
func (s *hostSampler) SampleThreadPool(ctx context.Context) (diag.ThreadPoolStats, error) {
	if err := ctx.Err(); err != nil {
		return diag.ThreadPoolStats{}, err
	}
	return collectThreadPoolStats(s.listener), nil
}

// processMemory fills working-set and virtual sizes from the native
// per-process call. Fields the platform does not report stay zero.
func (s *hostSampler) processMemory(ctx context.Context, snap *diag.MemorySnapshot) {
	memInfo, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		s.logger.V(1).Info("process memory figures unavailable", "error", err.Error())
		return
	}
	snap.ProcessWorkingSetBytes = memInfo.RSS
	snap.ProcessVirtualMemoryBytes = memInfo.VMS
	snap.ProcessPrivateMemoryBytes = memInfo.Data
}
