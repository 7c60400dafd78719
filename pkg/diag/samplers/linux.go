// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"github.com/go-logr/logr"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func init() {
	diag.Register("linux", func(logger logr.Logger, config diag.Config) (diag.Sampler, error) {
		return NewLinuxSampler(logger, config)
	})
}

// Compile-time interface check
var _ diag.Sampler = (*LinuxSampler)(nil)

// LinuxSampler reads kernel counters from procfs: /proc/stat for CPU
// ticks, /proc/meminfo for system memory, /proc/self/{stat,status} for
// process figures.
type LinuxSampler struct {
	*procSampler
}

func NewLinuxSampler(logger logr.Logger, config diag.Config) (*LinuxSampler, error) {
	return &LinuxSampler{
		procSampler: newProcSampler(logger.WithName("linux"), config),
	}, nil
}

func (s *LinuxSampler) Capabilities() diag.SamplerCapabilities {
	return diag.SamplerCapabilities{
		UsesTickCounters:       true,
		SupportsSystemMemory:   true,
		SupportsNativePressure: false,
	}
}
