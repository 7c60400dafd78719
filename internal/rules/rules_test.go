// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func findingFor(findings []Finding, rule string) (Finding, bool) {
	for _, f := range findings {
		if f.Rule == rule {
			return f, true
		}
	}
	return Finding{}, false
}

func TestEvaluate_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Evaluate(diag.Snapshot{}))
}

func TestEvaluate_HealthySnapshot(t *testing.T) {
	snap := diag.Snapshot{
		CPUUsage:       &diag.CPUUsage{PercentageUsed: 30},
		MemorySnapshot: &diag.MemorySnapshot{MemoryPressurePercentage: 40},
		GCStats: &diag.GCStats{
			TotalGCPauseMsPercentage:    1.5,
			HeapFragmentationPercentage: 10,
		},
		ThreadPoolStats: &diag.ThreadPoolStats{
			MaxWorkerThreads:       10000,
			AvailableWorkerThreads: 9990,
		},
	}
	assert.Empty(t, Evaluate(snap))
}

func TestEvaluateCPU(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    Severity
		none    bool
	}{
		{name: "idle", percent: 10, none: true},
		{name: "just below warning", percent: 74.9, none: true},
		{name: "warning boundary", percent: 75, want: SeverityWarning},
		{name: "critical boundary", percent: 90, want: SeverityCritical},
		{name: "saturated", percent: 100, want: SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Evaluate(diag.Snapshot{CPUUsage: &diag.CPUUsage{PercentageUsed: tt.percent}})
			if tt.none {
				assert.Empty(t, findings)
				return
			}
			f, ok := findingFor(findings, "cpu-usage")
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Severity)
			assert.Equal(t, tt.percent, f.Value)
		})
	}
}

func TestEvaluateMemoryPressure(t *testing.T) {
	findings := Evaluate(diag.Snapshot{
		MemorySnapshot: &diag.MemorySnapshot{MemoryPressurePercentage: 92.5},
	})
	f, ok := findingFor(findings, "memory-pressure")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, f.Severity)

	findings = Evaluate(diag.Snapshot{
		MemorySnapshot: &diag.MemorySnapshot{MemoryPressurePercentage: 80},
	})
	f, ok = findingFor(findings, "memory-pressure")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, f.Severity)
}

func TestEvaluateGC_BothRulesCanFire(t *testing.T) {
	findings := Evaluate(diag.Snapshot{
		GCStats: &diag.GCStats{
			TotalGCPauseMsPercentage:    12,
			HeapFragmentationPercentage: 35,
		},
	})
	require.Len(t, findings, 2)

	pause, ok := findingFor(findings, "gc-pause")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, pause.Severity)

	frag, ok := findingFor(findings, "heap-fragmentation")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, frag.Severity)
}

func TestEvaluateThreadPool_Starvation(t *testing.T) {
	findings := Evaluate(diag.Snapshot{
		ThreadPoolStats: &diag.ThreadPoolStats{
			MaxWorkerThreads:       1000,
			AvailableWorkerThreads: 50,
		},
	})
	f, ok := findingFor(findings, "worker-starvation")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, f.Severity)
	assert.InDelta(t, 5.0, f.Value, 0.001)

	// Exactly at the 10% share is not starvation.
	findings = Evaluate(diag.Snapshot{
		ThreadPoolStats: &diag.ThreadPoolStats{
			MaxWorkerThreads:       1000,
			AvailableWorkerThreads: 100,
		},
	})
	assert.Empty(t, findings)
}

func TestEvaluateThreadPool_ZeroMaxIsSkipped(t *testing.T) {
	findings := Evaluate(diag.Snapshot{
		ThreadPoolStats: &diag.ThreadPoolStats{MaxWorkerThreads: 0},
	})
	assert.Empty(t, findings)
}
