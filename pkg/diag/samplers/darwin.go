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
	factory := func(logger logr.Logger, config diag.Config) (diag.Sampler, error) {
		return NewDarwinSampler(logger, config)
	}
	diag.Register("darwin", factory)
	diag.Register("ios", factory)
}

// Compile-time interface check
var _ diag.Sampler = (*DarwinSampler)(nil)

// DarwinSampler serves the Apple family (macOS, iOS). System memory
// comes from the host virtual-memory statistics call (page counts by
// free/active/inactive/wired/speculative state times the native page
// size); CPU usage is wall-clock based. On sandboxed iOS targets the
// host statistics call can be denied, in which case system totals
// degrade to zero rather than being invented.
type DarwinSampler struct {
	*hostSampler
}

func NewDarwinSampler(logger logr.Logger, config diag.Config) (*DarwinSampler, error) {
	base, err := newHostSampler(logger.WithName("darwin"), config)
	if err != nil {
		return nil, err
	}
	return &DarwinSampler{hostSampler: base}, nil
}

// SampleMemory combines host virtual-memory statistics with process
// figures from the native task-info call.
func (s *DarwinSampler) SampleMemory(ctx context.Context) (diag.MemorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return diag.MemorySnapshot{}, err
	}

	snap := diag.MemorySnapshot{
		ManagedHeapBytes: managedHeapBytes(),
		CollectedAt:      time.Now(),
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.V(1).Info("host virtual-memory statistics unavailable", "error", err.Error())
	} else {
		snap.TotalSystemMemoryBytes = vm.Total
		snap.AvailableSystemMemoryBytes = vm.Available
		snap.MemoryPressurePercentage = diag.MemoryPressure(vm.Total, vm.Available)
	}

	s.processMemory(ctx, &snap)
	return snap, nil
}

func (s *DarwinSampler) Capabilities() diag.SamplerCapabilities {
	return diag.SamplerCapabilities{
		UsesTickCounters:       false,
		SupportsSystemMemory:   true,
		SupportsNativePressure: false,
	}
}
