// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package samplers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

// userHZ is the kernel's USER_HZ tick rate. It has been fixed at 100 on
// every architecture Go supports; the sysconf value only differs on
// exotic configurations.
const userHZ = 100

// procSampler answers the four metric queries against procfs. It backs
// the Linux and Android samplers, which differ only in how the OS
// restricts access to the counter files.
//
// CPU usage is tick based: two consecutive readings of the aggregate
// cpu line in /proc/stat. The previous reading is cursor state guarded
// by the sampler mutex so concurrent callers never compute a delta
// against the same baseline.
type procSampler struct {
	logger   logr.Logger
	listener *diag.RuntimeCounterListener

	statPath       string
	meminfoPath    string
	selfStatPath   string
	selfStatusPath string

	mu    sync.Mutex
	ticks diag.TickDelta
}

func newProcSampler(logger logr.Logger, config diag.Config) *procSampler {
	config = config.WithDefaults()
	procPath := config.HostProcPath
	return &procSampler{
		logger:         logger,
		listener:       config.Listener,
		statPath:       filepath.Join(procPath, "stat"),
		meminfoPath:    filepath.Join(procPath, "meminfo"),
		selfStatPath:   filepath.Join(procPath, "self", "stat"),
		selfStatusPath: filepath.Join(procPath, "self", "status"),
	}
}

// SampleCPU reads the aggregate cpu line from /proc/stat and converts
// it into a usage percentage against the previous reading. A missing or
// unreadable counter file is the one failure that surfaces as an error:
// CPU numbers without a counter are meaningless.
func (s *procSampler) SampleCPU(ctx context.Context) (diag.CPUUsage, error) {
	if err := ctx.Err(); err != nil {
		return diag.CPUUsage{}, err
	}

	data, err := os.ReadFile(s.statPath)
	if err != nil {
		return diag.CPUUsage{}, fmt.Errorf("%w: reading %s: %v", diag.ErrSourceUnavailable, s.statPath, err)
	}
	idle, total, err := parseCPUTicks(data)
	if err != nil {
		return diag.CPUUsage{}, fmt.Errorf("%w: parsing %s: %v", diag.ErrSourceUnavailable, s.statPath, err)
	}

	s.mu.Lock()
	usage := s.ticks.Update(idle, total)
	s.mu.Unlock()

	userMs, kernelMs := s.processTimesMs()

	return diag.CPUUsage{
		PercentageUsed:       usage,
		TotalProcessorTimeMs: userMs + kernelMs,
		UserModeTimeMs:       userMs,
		KernelModeTimeMs:     kernelMs,
		ProcessorCount:       runtime.NumCPU(),
		CollectedAt:          time.Now(),
	}, nil
}

// SampleMemory combines system totals from /proc/meminfo with process
// figures from /proc/self/status. System totals degrade to the sysinfo
// syscall and finally to zero; the snapshot never invents a value.
func (s *procSampler) SampleMemory(ctx context.Context) (diag.MemorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return diag.MemorySnapshot{}, err
	}

	snap := diag.MemorySnapshot{
		ManagedHeapBytes: managedHeapBytes(),
		CollectedAt:      time.Now(),
	}

	total, available, err := s.systemMemory()
	if err != nil {
		s.logger.V(1).Info("system memory totals unavailable", "error", err.Error())
	} else {
		snap.TotalSystemMemoryBytes = total
		snap.AvailableSystemMemoryBytes = available
		snap.MemoryPressurePercentage = diag.MemoryPressure(total, available)
	}

	if err := s.processMemory(&snap); err != nil {
		s.logger.V(1).Info("process memory figures unavailable", "error", err.Error())
	}

	return snap, nil
}

// SampleGC reads collector statistics from the runtime.
func (s *procSampler) SampleGC(ctx context.Context) (diag.GCStats, error) {
	if err := ctx.Err(); err != nil {
		return diag.GCStats{}, err
	}
	return collectGCStats(s.listener), nil
}

// SampleThreadPool reads scheduler worker-pool statistics.
func (s *procSampler) SampleThreadPool(ctx context.Context) (diag.ThreadPoolStats, error) {
	if err := ctx.Err(); err != nil {
		return diag.ThreadPoolStats{}, err
	}
	return collectThreadPoolStats(s.listener), nil
}

// systemMemory reads MemTotal and MemAvailable from /proc/meminfo,
// falling back to the sysinfo syscall when the file cannot be read.
func (s *procSampler) systemMemory() (total, available uint64, err error) {
	data, readErr := os.ReadFile(s.meminfoPath)
	if readErr != nil {
		total, available, err = readSysinfoMemory()
		if err != nil {
			return 0, 0, fmt.Errorf("reading %s: %w (sysinfo fallback: %v)", s.meminfoPath, readErr, err)
		}
		return total, available, nil
	}

	total, available, parseErr := parseMeminfo(data)
	if parseErr != nil {
		return 0, 0, fmt.Errorf("parsing %s: %w", s.meminfoPath, parseErr)
	}
	return total, available, nil
}

// processMemory fills working-set, private, and virtual sizes from
// /proc/self/status.
func (s *procSampler) processMemory(snap *diag.MemorySnapshot) error {
	data, err := os.ReadFile(s.selfStatusPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.selfStatusPath, err)
	}

	rss, priv, virt := parseSelfStatus(data)
	snap.ProcessWorkingSetBytes = rss
	snap.ProcessPrivateMemoryBytes = priv
	snap.ProcessVirtualMemoryBytes = virt
	return nil
}

// processTimesMs reads cumulative user and kernel CPU time for the
// current process from /proc/self/stat, in milliseconds. Failures
// degrade to zero: the percentage comes from /proc/stat and stays
// meaningful without the process times.
func (s *procSampler) processTimesMs() (userMs, kernelMs float64) {
	data, err := os.ReadFile(s.selfStatPath)
	if err != nil {
		s.logger.V(2).Info("process stat unavailable", "path", s.selfStatPath, "error", err.Error())
		return 0, 0
	}

	// Field 2 (comm) may contain spaces and parens; fields are stable
	// only after the last ')'.
	end := bytes.LastIndexByte(data, ')')
	if end < 0 || end+1 >= len(data) {
		s.logger.V(2).Info("unexpected process stat format", "path", s.selfStatPath)
		return 0, 0
	}
	fields := strings.Fields(string(data[end+1:]))
	// After the closing paren: state ppid pgrp session tty_nr tpgid
	// flags minflt cminflt majflt cmajflt utime stime ...
	if len(fields) < 13 {
		s.logger.V(2).Info("short process stat line", "path", s.selfStatPath, "fields", len(fields))
		return 0, 0
	}

	utime, err1 := strconv.ParseUint(fields[11], 10, 64)
	stime, err2 := strconv.ParseUint(fields[12], 10, 64)
	if err1 != nil || err2 != nil {
		s.logger.V(2).Info("unparseable process times", "utime", fields[11], "stime", fields[12])
		return 0, 0
	}
	return ticksToMs(utime), ticksToMs(stime)
}

func ticksToMs(ticks uint64) float64 {
	return float64(ticks) * (1000.0 / userHZ)
}

// parseCPUTicks extracts cumulative idle and total tick counts from the
// aggregate cpu line of /proc/stat:
//
//	cpu <user> <nice> <system> <idle> <iowait> <irq> <softirq> <steal> <guest> <guest_nice>
//
// The first four fields are required; the rest were added over kernel
// history and default to zero. Idle time includes iowait, matching how
// the kernel accounts a CPU waiting on I/O as not doing work.
func parseCPUTicks(data []byte) (idle, total uint64, err error) {
	r := diag.NewCounterReader(data)
	// The aggregate line is "cpu" followed by whitespace; per-core lines
	// ("cpu0") must not match.
	if !r.SkipPrefix("cpu ") && !r.SkipPrefix("cpu\t") {
		return 0, 0, fmt.Errorf("%w: no aggregate cpu line", diag.ErrParse)
	}

	required := [4]uint64{} // user, nice, system, idle
	for i := range required {
		v, err := r.ReadUint64(true)
		if err != nil {
			return 0, 0, err
		}
		required[i] = v
	}

	optional := [6]uint64{} // iowait, irq, softirq, steal, guest, guest_nice
	for i := range optional {
		v, err := r.ReadUint64(false)
		if err != nil {
			return 0, 0, err
		}
		optional[i] = v
	}

	idle = required[3] + optional[0]
	total = required[0] + required[1] + required[2] + required[3]
	for _, v := range optional {
		total += v
	}
	return idle, total, nil
}

// parseMeminfo extracts MemTotal and MemAvailable from /proc/meminfo.
// Lines are "Label:   value kB". MemTotal is required; MemAvailable
// (kernel 3.14+) defaults to zero when absent.
func parseMeminfo(data []byte) (total, available uint64, err error) {
	var haveTotal bool
	r := diag.NewCounterReader(data)
	for !r.AtEnd() {
		switch {
		case r.SkipPrefix("MemTotal:"):
			v, err := r.ReadUint64(true)
			if err != nil {
				return 0, 0, err
			}
			total = v * 1024
			haveTotal = true
		case r.SkipPrefix("MemAvailable:"):
			v, err := r.ReadUint64(true)
			if err != nil {
				return 0, 0, err
			}
			available = v * 1024
		}
		r.SkipLine()
	}
	if !haveTotal {
		return 0, 0, fmt.Errorf("%w: MemTotal not found", diag.ErrParse)
	}
	return total, available, nil
}

// parseSelfStatus extracts VmRSS (working set), VmData (private
// anonymous), and VmSize (virtual) from /proc/self/status. Values are
// in kB; missing fields stay zero.
func parseSelfStatus(data []byte) (rss, private, virtual uint64) {
	r := diag.NewCounterReader(data)
	for !r.AtEnd() {
		switch {
		case r.SkipPrefix("VmRSS:"):
			if v, err := r.ReadUint64(true); err == nil {
				rss = v * 1024
			}
		case r.SkipPrefix("VmData:"):
			if v, err := r.ReadUint64(true); err == nil {
				private = v * 1024
			}
		case r.SkipPrefix("VmSize:"):
			if v, err := r.ReadUint64(true); err == nil {
				virtual = v * 1024
			}
		}
		r.SkipLine()
	}
	return rss, private, virtual
}
