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
	diag.Register("android", func(logger logr.Logger, config diag.Config) (diag.Sampler, error) {
		return NewAndroidSampler(logger, config)
	})
}

// Compile-time interface check
var _ diag.Sampler = (*AndroidSampler)(nil)

// AndroidSampler reads the same procfs counters as the Linux sampler.
// Android 8+ denies app access to /proc/stat through SELinux, in which
// case SampleCPU surfaces the permission error as SourceUnavailable and
// the caller skips that cycle; the per-process files under /proc/self
// stay readable.
type AndroidSampler struct {
	*procSampler
}

func NewAndroidSampler(logger logr.Logger, config diag.Config) (*AndroidSampler, error) {
	return &AndroidSampler{
		procSampler: newProcSampler(logger.WithName("android"), config),
	}, nil
}

func (s *AndroidSampler) Capabilities() diag.SamplerCapabilities {
	return diag.SamplerCapabilities{
		UsesTickCounters:       true,
		SupportsSystemMemory:   true,
		SupportsNativePressure: false,
	}
}
