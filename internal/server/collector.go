// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package server

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

const namespace = "runtimediag"

// samplerCollector exposes sampler readings on the Prometheus
// registry. Sampling happens at scrape time; unavailable sections are
// simply absent from that scrape.
type samplerCollector struct {
	sampler diag.Sampler
	logger  logr.Logger

	cpuUsage       *prometheus.Desc
	processorCount *prometheus.Desc
	processCPUMs   *prometheus.Desc

	memPressure *prometheus.Desc
	memBytes    *prometheus.Desc

	gcCycles        *prometheus.Desc
	gcAllocated     *prometheus.Desc
	gcPauseShare    *prometheus.Desc
	gcFragmentation *prometheus.Desc

	poolWorkers   *prometheus.Desc
	poolQueued    *prometheus.Desc
	poolCompleted *prometheus.Desc
}

func newSamplerCollector(sampler diag.Sampler, logger logr.Logger) *samplerCollector {
	return &samplerCollector{
		sampler: sampler,
		logger:  logger.WithName("collector"),

		cpuUsage: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cpu", "usage_percent"),
			"CPU usage percentage over the last sampling delta.", nil, nil),
		processorCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cpu", "processors"),
			"Logical processor count.", nil, nil),
		processCPUMs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cpu", "process_time_ms_total"),
			"Cumulative process CPU time in milliseconds.", []string{"mode"}, nil),

		memPressure: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "memory", "pressure_percent"),
			"System memory pressure percentage.", nil, nil),
		memBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "memory", "bytes"),
			"Memory sizes by kind.", []string{"kind"}, nil),

		gcCycles: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gc", "cycles_total"),
			"Completed GC cycles by trigger.", []string{"trigger"}, nil),
		gcAllocated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gc", "allocated_bytes_total"),
			"Cumulative bytes allocated on the heap.", nil, nil),
		gcPauseShare: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gc", "pause_percent"),
			"Share of CPU time spent in the garbage collector.", nil, nil),
		gcFragmentation: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gc", "heap_fragmentation_percent"),
			"Heap fragmentation percentage.", nil, nil),

		poolWorkers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "workers", "threads"),
			"Worker thread figures by kind.", []string{"kind"}, nil),
		poolQueued: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "workers", "queued_items"),
			"Work items currently queued.", nil, nil),
		poolCompleted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "workers", "completed_items_total"),
			"Cumulative completed work items.", nil, nil),
	}
}

func (c *samplerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuUsage
	ch <- c.processorCount
	ch <- c.processCPUMs
	ch <- c.memPressure
	ch <- c.memBytes
	ch <- c.gcCycles
	ch <- c.gcAllocated
	ch <- c.gcPauseShare
	ch <- c.gcFragmentation
	ch <- c.poolWorkers
	ch <- c.poolQueued
	ch <- c.poolCompleted
}

func (c *samplerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	if cpu, err := c.sampler.SampleCPU(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpuUsage, prometheus.GaugeValue, cpu.PercentageUsed)
		ch <- prometheus.MustNewConstMetric(c.processorCount, prometheus.GaugeValue, float64(cpu.ProcessorCount))
		ch <- prometheus.MustNewConstMetric(c.processCPUMs, prometheus.CounterValue, cpu.UserModeTimeMs, "user")
		ch <- prometheus.MustNewConstMetric(c.processCPUMs, prometheus.CounterValue, cpu.KernelModeTimeMs, "kernel")
	} else {
		c.logger.V(1).Info("cpu scrape skipped", "error", err.Error())
	}

	if mem, err := c.sampler.SampleMemory(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.memPressure, prometheus.GaugeValue, mem.MemoryPressurePercentage)
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.TotalSystemMemoryBytes), "system_total")
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.AvailableSystemMemoryBytes), "system_available")
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.ProcessWorkingSetBytes), "working_set")
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.ProcessPrivateMemoryBytes), "private")
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.ProcessVirtualMemoryBytes), "virtual")
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(mem.ManagedHeapBytes), "managed_heap")
	} else {
		c.logger.V(1).Info("memory scrape skipped", "error", err.Error())
	}

	if gc, err := c.sampler.SampleGC(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.gcCycles, prometheus.CounterValue, float64(gc.Gen0Collections), "automatic")
		ch <- prometheus.MustNewConstMetric(c.gcCycles, prometheus.CounterValue, float64(gc.Gen1Collections), "forced")
		ch <- prometheus.MustNewConstMetric(c.gcAllocated, prometheus.CounterValue, float64(gc.TotalAllocatedBytes))
		ch <- prometheus.MustNewConstMetric(c.gcPauseShare, prometheus.GaugeValue, gc.TotalGCPauseMsPercentage)
		ch <- prometheus.MustNewConstMetric(c.gcFragmentation, prometheus.GaugeValue, gc.HeapFragmentationPercentage)
	} else {
		c.logger.V(1).Info("gc scrape skipped", "error", err.Error())
	}

	if pool, err := c.sampler.SampleThreadPool(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(pool.WorkerThreadCount), "current")
		ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(pool.AvailableWorkerThreads), "available")
		ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(pool.MinWorkerThreads), "min")
		ch <- prometheus.MustNewConstMetric(c.poolWorkers, prometheus.GaugeValue, float64(pool.MaxWorkerThreads), "max")
		ch <- prometheus.MustNewConstMetric(c.poolQueued, prometheus.GaugeValue, float64(pool.QueuedWorkItemCount))
		ch <- prometheus.MustNewConstMetric(c.poolCompleted, prometheus.CounterValue, float64(pool.CompletedWorkItemCount))
	} else {
		c.logger.V(1).Info("thread pool scrape skipped", "error", err.Error())
	}
}

var _ prometheus.Collector = (*samplerCollector)(nil)
