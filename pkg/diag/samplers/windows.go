// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func init() {
	diag.Register("windows", func(logger logr.Logger, config diag.Config) (diag.Sampler, error) {
		return NewWindowsSampler(logger, config)
	})
}

// Compile-time interface check
var _ diag.Sampler = (*WindowsSampler)(nil)

// WindowsSampler reads system memory through GlobalMemoryStatusEx,
// which reports a memory-load percentage natively; that figure is used
// as the pressure value instead of deriving one from the totals. CPU
// usage is wall-clock based on process times from GetProcessTimes.
type WindowsSampler struct {
	*hostSampler
}

func NewWindowsSampler(logger logr.Logger, config diag.Config) (*WindowsSampler, error) {
	base, err := newHostSampler(logger.WithName("windows"), config)
	if err != nil {
		return nil, err
	}
	return &WindowsSampler{hostSampler: base}, nil
}

// SampleMemory combines the native memory-status structure with
// per-process counters.
func (s *WindowsSampler) SampleMemory(ctx context.Context) (diag.MemorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return diag.MemorySnapshot{}, err
	}

	snap := diag.MemorySnapshot{
		ManagedHeapBytes: managedHeapBytes(),
		CollectedAt:      time.Now(),
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.V(1).Info("memory status unavailable", "error", err.Error())
	} else {
		snap.TotalSystemMemoryBytes = vm.Total
		snap.AvailableSystemMemoryBytes = vm.Available
		// dwMemoryLoad straight from the OS.
		snap.MemoryPressurePercentage = diag.ClampPercent(vm.UsedPercent)
	}

	s.processMemory(ctx, &snap)

	// On Windows the virtual size reported for the process is its
	// pagefile commit, which is also the closest private-bytes figure.
	if snap.ProcessPrivateMemoryBytes == 0 {
		snap.ProcessPrivateMemoryBytes = snap.ProcessVirtualMemoryBytes
	}
	return snap, nil
}

func (s *WindowsSampler) Capabilities() diag.SamplerCapabilities {
	return diag.SamplerCapabilities{
		UsesTickCounters:       false,
		SupportsSystemMemory:   true,
		SupportsNativePressure: true,
	}
}
