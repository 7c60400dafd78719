// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package report loads exported metric snapshots and renders them as
// human-readable text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jhobel85/RuntimeDiagToolkit/internal/rules"
	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

// Load reads a snapshot previously exported as JSON, e.g. by the
// sample command.
func Load(path string) (diag.Snapshot, error) {
	var snap diag.Snapshot

	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("failed to read metrics file: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal metrics file: %w", err)
	}
	return snap, nil
}

// Render writes the snapshot and its classified findings to w.
func Render(w io.Writer, snap diag.Snapshot, findings []rules.Finding) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	if cpu := snap.CPUUsage; cpu != nil {
		fmt.Fprintf(tw, "CPU\t\n")
		fmt.Fprintf(tw, "  usage\t%.2f%%\n", cpu.PercentageUsed)
		fmt.Fprintf(tw, "  processors\t%d\n", cpu.ProcessorCount)
		fmt.Fprintf(tw, "  process time\t%.0fms (user %.0fms, kernel %.0fms)\n",
			cpu.TotalProcessorTimeMs, cpu.UserModeTimeMs, cpu.KernelModeTimeMs)
	}

	if mem := snap.MemorySnapshot; mem != nil {
		fmt.Fprintf(tw, "Memory\t\n")
		fmt.Fprintf(tw, "  pressure\t%.2f%%\n", mem.MemoryPressurePercentage)
		fmt.Fprintf(tw, "  system total\t%s\n", formatBytes(mem.TotalSystemMemoryBytes))
		fmt.Fprintf(tw, "  system available\t%s\n", formatBytes(mem.AvailableSystemMemoryBytes))
		fmt.Fprintf(tw, "  working set\t%s\n", formatBytes(mem.ProcessWorkingSetBytes))
		fmt.Fprintf(tw, "  private\t%s\n", formatBytes(mem.ProcessPrivateMemoryBytes))
		fmt.Fprintf(tw, "  virtual\t%s\n", formatBytes(mem.ProcessVirtualMemoryBytes))
		fmt.Fprintf(tw, "  managed heap\t%s\n", formatBytes(mem.ManagedHeapBytes))
	}

	if gc := snap.GCStats; gc != nil {
		fmt.Fprintf(tw, "GC\t\n")
		fmt.Fprintf(tw, "  cycles\t%d automatic, %d forced, %d total\n",
			gc.Gen0Collections, gc.Gen1Collections, gc.Gen2Collections)
		fmt.Fprintf(tw, "  allocated\t%s\n", formatBytes(gc.TotalAllocatedBytes))
		fmt.Fprintf(tw, "  pause share\t%.2f%%\n", gc.TotalGCPauseMsPercentage)
		fmt.Fprintf(tw, "  fragmentation\t%.2f%%\n", gc.HeapFragmentationPercentage)
		fmt.Fprintf(tw, "  concurrent\t%t\n", gc.IsGCConcurrentEnabled)
	}

	if pool := snap.ThreadPoolStats; pool != nil {
		fmt.Fprintf(tw, "Workers\t\n")
		fmt.Fprintf(tw, "  threads\t%d (min %d, max %d, available %d)\n",
			pool.WorkerThreadCount, pool.MinWorkerThreads, pool.MaxWorkerThreads,
			pool.AvailableWorkerThreads)
		fmt.Fprintf(tw, "  queued\t%d\n", pool.QueuedWorkItemCount)
		fmt.Fprintf(tw, "  completed\t%d\n", pool.CompletedWorkItemCount)
	}

	if len(findings) == 0 {
		fmt.Fprintf(tw, "Findings\tnone\n")
	} else {
		fmt.Fprintf(tw, "Findings\t\n")
		for _, f := range findings {
			fmt.Fprintf(tw, "  [%s]\t%s: %s\n", f.Severity, f.Rule, f.Message)
		}
	}

	return tw.Flush()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for n/div >= unit && exp < 4 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}
