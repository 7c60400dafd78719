// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import "time"

// TickDelta converts cumulative kernel tick counters into a usage
// percentage. The kernel reports time attributed to each CPU state as
// counters that only grow, so a single reading carries no rate
// information: usage is derived from the difference between two
// consecutive readings.
//
// The cursor stores the previous reading and overwrites it on every
// Update. The first reading, a non-positive total delta, and a counter
// regression (reboot, namespace move) all report 0 rather than a
// negative or wrapped value.
type TickDelta struct {
	prevIdle  uint64
	prevTotal uint64
	valid     bool
}

// Update records a new cumulative (idle, total) reading and returns the
// usage percentage since the previous one, clamped to [0, 100].
func (d *TickDelta) Update(idle, total uint64) float64 {
	prevIdle, prevTotal, valid := d.prevIdle, d.prevTotal, d.valid
	d.prevIdle = idle
	d.prevTotal = total
	d.valid = true

	if !valid {
		return 0
	}
	if total <= prevTotal || idle < prevIdle {
		// Counter regression: delta undefined.
		return 0
	}
	deltaTotal := total - prevTotal
	deltaIdle := idle - prevIdle
	usage := (1.0 - float64(deltaIdle)/float64(deltaTotal)) * 100.0
	return ClampPercent(usage)
}

// Reset clears the stored reading so the next Update reports 0.
func (d *TickDelta) Reset() {
	*d = TickDelta{}
}

// WallClockDelta derives a usage percentage from cumulative process CPU
// time against wall-clock time, for platforms without system-wide tick
// counters. Usage is Δcpu / (Δwall × processors) × 100, clamped.
//
// As with TickDelta, the first reading and any non-positive wall-clock
// delta report 0.
type WallClockDelta struct {
	prevWall time.Time
	prevCPU  time.Duration
	valid    bool
}

// Update records a new (wall, cpu) reading and returns the usage
// percentage since the previous one, clamped to [0, 100]. processors
// values below 1 are treated as 1.
func (d *WallClockDelta) Update(wall time.Time, cpu time.Duration, processors int) float64 {
	prevWall, prevCPU, valid := d.prevWall, d.prevCPU, d.valid
	d.prevWall = wall
	d.prevCPU = cpu
	d.valid = true

	if !valid {
		return 0
	}
	deltaWall := wall.Sub(prevWall)
	if deltaWall <= 0 {
		return 0
	}
	deltaCPU := cpu - prevCPU
	if deltaCPU < 0 {
		return 0
	}
	if processors < 1 {
		processors = 1
	}
	usage := float64(deltaCPU) / (float64(deltaWall) * float64(processors)) * 100.0
	return ClampPercent(usage)
}

// Reset clears the stored reading so the next Update reports 0.
func (d *WallClockDelta) Reset() {
	*d = WallClockDelta{}
}
