// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// Sampler answers the four runtime health metric queries for one
// operating environment. Implementations are long-lived, one per
// process, and safe for concurrent use; each method performs a single
// non-blocking read of the underlying source.
//
// SampleCPU is the only method that fails when its counter source
// cannot be read: a CPU figure without a counter is meaningless.
// The other methods degrade structurally-unavailable sub-measurements
// to zero instead of failing the whole call.
type Sampler interface {
	SampleCPU(ctx context.Context) (CPUUsage, error)
	SampleMemory(ctx context.Context) (MemorySnapshot, error)
	SampleGC(ctx context.Context) (GCStats, error)
	SampleThreadPool(ctx context.Context) (ThreadPoolStats, error)

	Capabilities() SamplerCapabilities
}

// SamplerCapabilities describes what a platform sampler can measure and
// how, so callers can interpret zeroed fields.
type SamplerCapabilities struct {
	// UsesTickCounters is true when CPU usage comes from cumulative
	// kernel tick counters rather than process time over wall clock.
	UsesTickCounters bool
	// SupportsSystemMemory is false when system-wide totals are not
	// obtainable and the snapshot reports them as zero.
	SupportsSystemMemory bool
	// SupportsNativePressure is true when the OS reports a memory-load
	// percentage directly instead of it being derived from totals.
	SupportsNativePressure bool
}

// AdaptiveControls is the surface consumed by lifecycle glue to steer
// the adaptive sampling policy.
type AdaptiveControls interface {
	SetSamplingInterval(d time.Duration)
	OnForegrounded()
	OnBackgrounded()
	CurrentSamplingInterval() time.Duration
	IsBackground() bool
}

// Config carries the inputs a platform sampler needs. The zero value is
// usable: paths default to the live kernel interfaces and the listener
// defaults to the process-wide one.
type Config struct {
	// HostProcPath overrides the procfs mount point, mainly for tests
	// and containerized deployments that mount the host /proc elsewhere.
	HostProcPath string

	// Listener supplies the runtime counter gauges. Nil selects the
	// process-wide default listener.
	Listener *RuntimeCounterListener
}

// WithDefaults fills unset fields with their process defaults.
func (c Config) WithDefaults() Config {
	if c.HostProcPath == "" {
		c.HostProcPath = "/proc"
	}
	if c.Listener == nil {
		c.Listener = DefaultListener()
	}
	return c
}

// Validate checks that configured paths are usable.
func (c Config) Validate() error {
	if c.HostProcPath != "" && !filepath.IsAbs(c.HostProcPath) {
		return fmt.Errorf("HostProcPath %q must be an absolute path", c.HostProcPath)
	}
	return nil
}
