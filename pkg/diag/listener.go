// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"math"
	"runtime/metrics"
	"sync"
	"sync/atomic"
	"time"
)

const defaultListenerInterval = time.Second

// Runtime counter names sampled by the listener.
const (
	metricGCCPUSeconds    = "/cpu/classes/gc/total:cpu-seconds"
	metricTotalCPUSeconds = "/cpu/classes/total:cpu-seconds"
	metricGoroutines      = "/sched/goroutines:goroutines"
	metricSchedLatencies  = "/sched/latencies:seconds"
)

// RuntimeCounterListener subscribes to the runtime's continuously
// maintained event counters that have no direct synchronous query:
// the share of CPU time spent in the collector, the current work-queue
// depth, and the cumulative count of completed scheduling events.
//
// A background goroutine refreshes the gauges on a fixed cadence;
// readers use atomic loads and never block on the refresh. The contract
// is "most recently published value" — these are coarse gauges, not
// linearizable with any particular sample.
type RuntimeCounterListener struct {
	gcPausePercent atomic.Uint64 // float64 bits
	queuedItems    atomic.Uint64
	completedItems atomic.Uint64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRuntimeCounterListener starts a listener refreshing every
// interval. Non-positive intervals fall back to one second, matching
// the cadence the runtime itself updates these counters at.
//
// Callers own the returned listener and must Close it at shutdown.
// Most callers want the process-wide DefaultListener instead.
func NewRuntimeCounterListener(interval time.Duration) *RuntimeCounterListener {
	if interval <= 0 {
		interval = defaultListenerInterval
	}
	l := &RuntimeCounterListener{
		done: make(chan struct{}),
	}
	// Publish an initial reading so the gauges are never zero-valued
	// just because the first tick has not fired yet.
	l.refresh()

	l.wg.Add(1)
	go l.run(interval)
	return l
}

func (l *RuntimeCounterListener) run(interval time.Duration) {
	defer l.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.refresh()
		}
	}
}

func (l *RuntimeCounterListener) refresh() {
	samples := []metrics.Sample{
		{Name: metricGCCPUSeconds},
		{Name: metricTotalCPUSeconds},
		{Name: metricGoroutines},
		{Name: metricSchedLatencies},
	}
	metrics.Read(samples)

	var gcSeconds, totalSeconds float64
	if samples[0].Value.Kind() == metrics.KindFloat64 {
		gcSeconds = samples[0].Value.Float64()
	}
	if samples[1].Value.Kind() == metrics.KindFloat64 {
		totalSeconds = samples[1].Value.Float64()
	}
	if totalSeconds > 0 {
		l.gcPausePercent.Store(math.Float64bits(ClampPercent(gcSeconds / totalSeconds * 100.0)))
	}

	if samples[2].Value.Kind() == metrics.KindUint64 {
		l.queuedItems.Store(samples[2].Value.Uint64())
	}

	if samples[3].Value.Kind() == metrics.KindFloat64Histogram {
		var completed uint64
		for _, count := range samples[3].Value.Float64Histogram().Counts {
			completed += count
		}
		l.completedItems.Store(completed)
	}
}

// GCPausePercent returns the most recently published share of process
// CPU time spent in the collector, in [0, 100].
func (l *RuntimeCounterListener) GCPausePercent() float64 {
	return math.Float64frombits(l.gcPausePercent.Load())
}

// QueuedWorkItems returns the most recently published work-queue depth.
func (l *RuntimeCounterListener) QueuedWorkItems() uint64 {
	return l.queuedItems.Load()
}

// CompletedWorkItems returns the cumulative count of completed
// scheduling events. The value never decreases between refreshes.
func (l *RuntimeCounterListener) CompletedWorkItems() uint64 {
	return l.completedItems.Load()
}

// Close stops the background refresh and waits for it to exit. Safe to
// call more than once.
func (l *RuntimeCounterListener) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

var (
	defaultListenerMu sync.Mutex
	defaultListener   *RuntimeCounterListener
)

// DefaultListener returns the process-wide listener, creating it on
// first use. The mutex is only contended on the slow path; once the
// listener exists it is never replaced.
func DefaultListener() *RuntimeCounterListener {
	defaultListenerMu.Lock()
	defer defaultListenerMu.Unlock()
	if defaultListener == nil {
		defaultListener = NewRuntimeCounterListener(defaultListenerInterval)
	}
	return defaultListener
}

// CloseDefaultListener tears down the process-wide listener. Intended
// for process shutdown; a subsequent DefaultListener call starts a
// fresh one.
func CloseDefaultListener() {
	defaultListenerMu.Lock()
	l := defaultListener
	defaultListener = nil
	defaultListenerMu.Unlock()
	if l != nil {
		l.Close()
	}
}
