// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func newRuntimeTestSampler(t *testing.T) *LinuxSampler {
	t.Helper()
	listener := diag.NewRuntimeCounterListener(time.Hour)
	t.Cleanup(listener.Close)

	sampler, err := NewLinuxSampler(logr.Discard(), diag.Config{
		HostProcPath: t.TempDir(),
		Listener:     listener,
	})
	require.NoError(t, err)
	return sampler
}

func TestSampleGC_CountersMonotonic(t *testing.T) {
	sampler := newRuntimeTestSampler(t)
	ctx := context.Background()

	first, err := sampler.SampleGC(ctx)
	require.NoError(t, err)

	// Force collector activity between samples.
	runtime.GC()
	runtime.GC()

	second, err := sampler.SampleGC(ctx)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, second.Gen0Collections, first.Gen0Collections)
	assert.GreaterOrEqual(t, second.Gen1Collections, first.Gen1Collections)
	assert.GreaterOrEqual(t, second.Gen2Collections, first.Gen2Collections)
	assert.GreaterOrEqual(t, second.TotalAllocatedBytes, first.TotalAllocatedBytes)
	assert.Greater(t, second.Gen1Collections, first.Gen1Collections, "runtime.GC is a forced cycle")
}

func TestSampleGC_Shape(t *testing.T) {
	sampler := newRuntimeTestSampler(t)

	stats, err := sampler.SampleGC(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.IsGCConcurrentEnabled)
	assert.GreaterOrEqual(t, stats.HeapFragmentationPercentage, 0.0)
	assert.LessOrEqual(t, stats.HeapFragmentationPercentage, 100.0)
	assert.GreaterOrEqual(t, stats.TotalGCPauseMsPercentage, 0.0)
	assert.LessOrEqual(t, stats.TotalGCPauseMsPercentage, 100.0)
	assert.Equal(t, stats.Gen0Collections+stats.Gen1Collections, stats.Gen2Collections,
		"total cycles are automatic plus forced")
	assert.False(t, stats.CollectedAt.IsZero())
}

func TestSampleThreadPool_Invariants(t *testing.T) {
	sampler := newRuntimeTestSampler(t)

	stats, err := sampler.SampleThreadPool(context.Background())
	require.NoError(t, err)

	assert.Greater(t, stats.MinWorkerThreads, 0)
	assert.GreaterOrEqual(t, stats.MaxWorkerThreads, stats.MinWorkerThreads)
	assert.Greater(t, stats.WorkerThreadCount, 0)
	assert.GreaterOrEqual(t, stats.AvailableWorkerThreads, 0)
	assert.Greater(t, stats.QueuedWorkItemCount, uint64(0), "a live process always has goroutines")
	assert.False(t, stats.CollectedAt.IsZero())
}

func TestSampleThreadPool_CompletedMonotonicAcrossCalls(t *testing.T) {
	sampler := newRuntimeTestSampler(t)
	ctx := context.Background()

	var prev uint64
	for i := 0; i < 5; i++ {
		stats, err := sampler.SampleThreadPool(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.CompletedWorkItemCount, prev)
		prev = stats.CompletedWorkItemCount
	}
}

func TestSampleGCAndThreadPool_CancelledContext(t *testing.T) {
	sampler := newRuntimeTestSampler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sampler.SampleGC(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = sampler.SampleThreadPool(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
