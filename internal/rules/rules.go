// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package rules classifies metric snapshots into severity findings.
// Evaluation is pure: no I/O, no state, snapshots in and findings out.
package rules

import (
	"fmt"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Finding is one classified observation about a snapshot.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
}

// Classification thresholds. Warning and critical bounds are inclusive.
const (
	cpuWarningPercent  = 75.0
	cpuCriticalPercent = 90.0

	pressureWarningPercent  = 75.0
	pressureCriticalPercent = 90.0

	gcPauseWarningPercent  = 5.0
	gcPauseCriticalPercent = 10.0

	fragmentationWarningPercent  = 30.0
	fragmentationCriticalPercent = 50.0

	// Worker starvation: available workers below this share of the max.
	starvationAvailableShare = 0.10
)

// Evaluate classifies every populated section of a snapshot. Sections
// that are nil are skipped; a healthy snapshot yields no findings.
func Evaluate(snap diag.Snapshot) []Finding {
	var findings []Finding

	if cpu := snap.CPUUsage; cpu != nil {
		findings = append(findings, evaluateCPU(cpu)...)
	}
	if mem := snap.MemorySnapshot; mem != nil {
		findings = append(findings, evaluateMemory(mem)...)
	}
	if gc := snap.GCStats; gc != nil {
		findings = append(findings, evaluateGC(gc)...)
	}
	if pool := snap.ThreadPoolStats; pool != nil {
		findings = append(findings, evaluateThreadPool(pool)...)
	}
	return findings
}

func evaluateCPU(cpu *diag.CPUUsage) []Finding {
	if sev, ok := grade(cpu.PercentageUsed, cpuWarningPercent, cpuCriticalPercent); ok {
		return []Finding{{
			Rule:     "cpu-usage",
			Severity: sev,
			Message:  fmt.Sprintf("CPU usage at %.1f%%", cpu.PercentageUsed),
			Value:    cpu.PercentageUsed,
		}}
	}
	return nil
}

func evaluateMemory(mem *diag.MemorySnapshot) []Finding {
	if sev, ok := grade(mem.MemoryPressurePercentage, pressureWarningPercent, pressureCriticalPercent); ok {
		return []Finding{{
			Rule:     "memory-pressure",
			Severity: sev,
			Message:  fmt.Sprintf("memory pressure at %.1f%%", mem.MemoryPressurePercentage),
			Value:    mem.MemoryPressurePercentage,
		}}
	}
	return nil
}

func evaluateGC(gc *diag.GCStats) []Finding {
	var findings []Finding
	if sev, ok := grade(gc.TotalGCPauseMsPercentage, gcPauseWarningPercent, gcPauseCriticalPercent); ok {
		findings = append(findings, Finding{
			Rule:     "gc-pause",
			Severity: sev,
			Message:  fmt.Sprintf("%.1f%% of CPU time spent in GC", gc.TotalGCPauseMsPercentage),
			Value:    gc.TotalGCPauseMsPercentage,
		})
	}
	if sev, ok := grade(gc.HeapFragmentationPercentage, fragmentationWarningPercent, fragmentationCriticalPercent); ok {
		findings = append(findings, Finding{
			Rule:     "heap-fragmentation",
			Severity: sev,
			Message:  fmt.Sprintf("heap fragmentation at %.1f%%", gc.HeapFragmentationPercentage),
			Value:    gc.HeapFragmentationPercentage,
		})
	}
	return findings
}

func evaluateThreadPool(pool *diag.ThreadPoolStats) []Finding {
	if pool.MaxWorkerThreads <= 0 {
		return nil
	}
	share := float64(pool.AvailableWorkerThreads) / float64(pool.MaxWorkerThreads)
	if share < starvationAvailableShare {
		return []Finding{{
			Rule:     "worker-starvation",
			Severity: SeverityWarning,
			Message: fmt.Sprintf("only %d of %d worker threads available",
				pool.AvailableWorkerThreads, pool.MaxWorkerThreads),
			Value: share * 100,
		}}
	}
	return nil
}

// grade maps a percentage onto a severity; ok is false below the
// warning threshold.
func grade(value, warning, critical float64) (Severity, bool) {
	switch {
	case value >= critical:
		return SeverityCritical, true
	case value >= warning:
		return SeverityWarning, true
	default:
		return "", false
	}
}
