// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const (
	// minSamplingInterval is the floor applied to configured intervals.
	minSamplingInterval = time.Millisecond
	// maxBackoffInterval is the ceiling the background backoff may reach.
	maxBackoffInterval = 5 * time.Second
	// backgroundEntryFactor is the immediate interval multiplier applied
	// when the process moves to the background, before the activity
	// streak has had a chance to build up.
	backgroundEntryFactor = 4
	// lowActivityCPUPercent is the CPU usage below which a sample counts
	// toward the low-activity streak.
	lowActivityCPUPercent = 2.0
	// maxLowActivityStreak caps the streak counter.
	maxLowActivityStreak = 10
)

type cached[T any] struct {
	value T
	at    time.Time
	valid bool
}

// AdaptiveSampler wraps a platform sampler with a cache-and-backoff
// policy tuned for battery-constrained execution. Within the current
// sampling interval it serves the previous snapshot without touching
// the underlying sampler; once stale it samples fresh and, for CPU,
// feeds the observed usage into an activity heuristic that widens the
// interval exponentially while the process is backgrounded.
//
// It implements both Sampler and AdaptiveControls, so callers hold one
// handle for queries and lifecycle transitions alike. All state is
// guarded by a single mutex; the underlying OS read happens under it so
// two callers can never compute a CPU delta against the same baseline.
type AdaptiveSampler struct {
	inner  Sampler
	logger logr.Logger

	mu                sync.Mutex
	baseInterval      time.Duration
	currentInterval   time.Duration
	background        bool
	lowActivityStreak int

	cpu    cached[CPUUsage]
	memory cached[MemorySnapshot]
	gc     cached[GCStats]
	pool   cached[ThreadPoolStats]

	now func() time.Time
}

var (
	_ Sampler          = (*AdaptiveSampler)(nil)
	_ AdaptiveControls = (*AdaptiveSampler)(nil)
)

// NewAdaptiveSampler wraps inner with the adaptive policy. baseInterval
// is coerced to at least one millisecond.
func NewAdaptiveSampler(inner Sampler, baseInterval time.Duration, logger logr.Logger) *AdaptiveSampler {
	if baseInterval < minSamplingInterval {
		baseInterval = minSamplingInterval
	}
	return &AdaptiveSampler{
		inner:           inner,
		logger:          logger.WithName("adaptive"),
		baseInterval:    baseInterval,
		currentInterval: baseInterval,
		now:             time.Now,
	}
}

// SampleCPU returns the cached snapshot while it is fresh, otherwise
// samples through the underlying sampler and updates the activity
// heuristic with the observed usage.
func (a *AdaptiveSampler) SampleCPU(ctx context.Context) (CPUUsage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fresh(a.cpu.at, a.cpu.valid) {
		return a.cpu.value, nil
	}
	usage, err := a.inner.SampleCPU(ctx)
	if err != nil {
		return CPUUsage{}, err
	}
	a.cpu = cached[CPUUsage]{value: usage, at: a.now(), valid: true}

	if a.background || usage.PercentageUsed < lowActivityCPUPercent {
		if a.lowActivityStreak < maxLowActivityStreak {
			a.lowActivityStreak++
		}
	} else {
		a.lowActivityStreak = 0
	}
	a.recomputeInterval()
	return usage, nil
}

// SampleMemory returns the cached snapshot while fresh, sampling
// through otherwise.
func (a *AdaptiveSampler) SampleMemory(ctx context.Context) (MemorySnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fresh(a.memory.at, a.memory.valid) {
		return a.memory.value, nil
	}
	snap, err := a.inner.SampleMemory(ctx)
	if err != nil {
		return MemorySnapshot{}, err
	}
	a.memory = cached[MemorySnapshot]{value: snap, at: a.now(), valid: true}
	return snap, nil
}

// SampleGC returns the cached snapshot while fresh, sampling through
// otherwise.
func (a *AdaptiveSampler) SampleGC(ctx context.Context) (GCStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fresh(a.gc.at, a.gc.valid) {
		return a.gc.value, nil
	}
	stats, err := a.inner.SampleGC(ctx)
	if err != nil {
		return GCStats{}, err
	}
	a.gc = cached[GCStats]{value: stats, at: a.now(), valid: true}
	return stats, nil
}

// SampleThreadPool returns the cached snapshot while fresh, sampling
// through otherwise.
func (a *AdaptiveSampler) SampleThreadPool(ctx context.Context) (ThreadPoolStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fresh(a.pool.at, a.pool.valid) {
		return a.pool.value, nil
	}
	stats, err := a.inner.SampleThreadPool(ctx)
	if err != nil {
		return ThreadPoolStats{}, err
	}
	a.pool = cached[ThreadPoolStats]{value: stats, at: a.now(), valid: true}
	return stats, nil
}

// Capabilities reports the wrapped sampler's capabilities.
func (a *AdaptiveSampler) Capabilities() SamplerCapabilities {
	return a.inner.Capabilities()
}

// SetSamplingInterval replaces the base interval, coercing non-positive
// durations to one millisecond, and recomputes the current interval
// consistent with the background state.
func (a *AdaptiveSampler) SetSamplingInterval(d time.Duration) {
	if d < minSamplingInterval {
		d = minSamplingInterval
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.baseInterval = d
	a.recomputeInterval()
	a.logger.V(1).Info("sampling interval updated",
		"base", a.baseInterval, "current", a.currentInterval, "background", a.background)
}

// OnForegrounded clears the background state, resets the activity
// streak, and restores the base interval.
func (a *AdaptiveSampler) OnForegrounded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = false
	a.lowActivityStreak = 0
	a.currentInterval = a.baseInterval
	a.logger.V(1).Info("foregrounded", "interval", a.currentInterval)
}

// OnBackgrounded sets the background state and immediately widens the
// interval to four times the base as a precautionary first step; the
// activity streak takes over on subsequent samples. Mobile OSes penalize
// background CPU use, so the first reaction must not wait for the
// streak to build.
func (a *AdaptiveSampler) OnBackgrounded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = true
	a.recomputeInterval()
	a.logger.V(1).Info("backgrounded", "interval", a.currentInterval)
}

// CurrentSamplingInterval returns the interval currently in effect.
func (a *AdaptiveSampler) CurrentSamplingInterval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentInterval
}

// IsBackground reports whether the process is currently backgrounded.
func (a *AdaptiveSampler) IsBackground() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.background
}

// fresh reports whether a cache entry is still within the current
// interval. Callers must hold the mutex.
func (a *AdaptiveSampler) fresh(at time.Time, valid bool) bool {
	return valid && a.now().Sub(at) < a.currentInterval
}

// recomputeInterval derives the current interval from the background
// state and the activity streak. Callers must hold the mutex.
//
// While backgrounded the interval is base × 2^streak, never below the
// 4× entry step and never above the five-second ceiling. Foreground
// sampling always runs at the base interval.
func (a *AdaptiveSampler) recomputeInterval() {
	if !a.background {
		a.currentInterval = a.baseInterval
		return
	}
	interval := a.baseInterval << uint(a.lowActivityStreak)
	if interval < a.baseInterval { // shift overflow
		interval = maxBackoffInterval
	}
	if entry := a.baseInterval * backgroundEntryFactor; interval < entry {
		interval = entry
	}
	if interval > maxBackoffInterval {
		interval = maxBackoffInterval
	}
	a.currentInterval = interval
}
