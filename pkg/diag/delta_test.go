// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickDelta_FirstReadingReportsZero(t *testing.T) {
	var d TickDelta
	assert.Equal(t, 0.0, d.Update(800, 950))
}

func TestTickDelta_Usage(t *testing.T) {
	tests := []struct {
		name                    string
		firstIdle, firstTotal   uint64
		secondIdle, secondTotal uint64
		want                    float64
	}{
		{
			name:      "typical usage",
			firstIdle: 800, firstTotal: 950,
			secondIdle: 850, secondTotal: 1070,
			// Δidle=50, Δtotal=120 → (1 − 50/120) × 100
			want: (1.0 - 50.0/120.0) * 100.0,
		},
		{
			name:      "fully idle",
			firstIdle: 100, firstTotal: 100,
			secondIdle: 200, secondTotal: 200,
			want: 0,
		},
		{
			name:      "fully busy",
			firstIdle: 100, firstTotal: 100,
			secondIdle: 100, secondTotal: 300,
			want: 100,
		},
		{
			name:      "no progress reports zero",
			firstIdle: 100, firstTotal: 500,
			secondIdle: 100, secondTotal: 500,
			want: 0,
		},
		{
			name:      "total regression reports zero",
			firstIdle: 100, firstTotal: 500,
			secondIdle: 50, secondTotal: 400,
			want: 0,
		},
		{
			name:      "idle regression reports zero",
			firstIdle: 100, firstTotal: 500,
			secondIdle: 50, secondTotal: 600,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d TickDelta
			d.Update(tt.firstIdle, tt.firstTotal)
			got := d.Update(tt.secondIdle, tt.secondTotal)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestTickDelta_RegressionOverwritesBaseline(t *testing.T) {
	// After a counter reset the new reading becomes the baseline, so
	// the next delta is computed against it rather than the stale one.
	var d TickDelta
	d.Update(800, 950)
	assert.Equal(t, 0.0, d.Update(100, 200))
	got := d.Update(150, 320)
	assert.InDelta(t, (1.0-50.0/120.0)*100.0, got, 1e-9)
}

func TestTickDelta_Reset(t *testing.T) {
	var d TickDelta
	d.Update(100, 200)
	d.Reset()
	assert.Equal(t, 0.0, d.Update(150, 400))
}

func TestWallClockDelta_FirstReadingReportsZero(t *testing.T) {
	var d WallClockDelta
	assert.Equal(t, 0.0, d.Update(time.Now(), time.Second, 4))
}

func TestWallClockDelta_Usage(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name       string
		elapsed    time.Duration
		cpuDelta   time.Duration
		processors int
		want       float64
	}{
		{
			name:    "half of one core on four cores",
			elapsed: time.Second, cpuDelta: 500 * time.Millisecond, processors: 4,
			want: 12.5,
		},
		{
			name:    "single core saturated",
			elapsed: time.Second, cpuDelta: time.Second, processors: 1,
			want: 100,
		},
		{
			name:    "cpu time exceeding wall clamps to 100",
			elapsed: time.Second, cpuDelta: 3 * time.Second, processors: 1,
			want: 100,
		},
		{
			name:    "zero processors treated as one",
			elapsed: time.Second, cpuDelta: 250 * time.Millisecond, processors: 0,
			want: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d WallClockDelta
			d.Update(base, time.Minute, tt.processors)
			got := d.Update(base.Add(tt.elapsed), time.Minute+tt.cpuDelta, tt.processors)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWallClockDelta_NonPositiveWallDeltaReportsZero(t *testing.T) {
	base := time.Now()
	var d WallClockDelta
	d.Update(base, time.Second, 2)
	assert.Equal(t, 0.0, d.Update(base, 2*time.Second, 2))
	assert.Equal(t, 0.0, d.Update(base.Add(-time.Second), 3*time.Second, 2))
}

func TestWallClockDelta_CPURegressionReportsZero(t *testing.T) {
	base := time.Now()
	var d WallClockDelta
	d.Update(base, 5*time.Second, 2)
	assert.Equal(t, 0.0, d.Update(base.Add(time.Second), 4*time.Second, 2))
}

func TestMemoryPressure(t *testing.T) {
	tests := []struct {
		name             string
		total, available uint64
		want             float64
	}{
		{name: "zero total reports zero", total: 0, available: 12345, want: 0},
		{name: "half used", total: 1000, available: 500, want: 50},
		{name: "all available", total: 1000, available: 1000, want: 0},
		{name: "none available", total: 1000, available: 0, want: 100},
		{name: "available above total reports zero", total: 1000, available: 2000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MemoryPressure(tt.total, tt.available), 1e-9)
		})
	}
}
