// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
	_ "github.com/jhobel85/RuntimeDiagToolkit/pkg/diag/samplers"
)

func TestNewSamplerFor_SupportedPlatforms(t *testing.T) {
	for _, goos := range []string{"linux", "android", "darwin", "ios", "windows"} {
		t.Run(goos, func(t *testing.T) {
			sampler, err := diag.NewSamplerFor(goos, logr.Discard(), diag.Config{})
			require.NoError(t, err)
			require.NotNil(t, sampler)
		})
	}
	diag.CloseDefaultListener()
}

func TestNewSamplerFor_UnsupportedPlatform(t *testing.T) {
	sampler, err := diag.NewSamplerFor("plan9", logr.Discard(), diag.Config{})
	assert.Nil(t, sampler)
	assert.ErrorIs(t, err, diag.ErrUnsupportedPlatform)
}

func TestNewSamplerFor_InvalidConfig(t *testing.T) {
	_, err := diag.NewSamplerFor("linux", logr.Discard(), diag.Config{HostProcPath: "proc"})
	assert.Error(t, err)
}

func TestRegisteredPlatforms(t *testing.T) {
	platforms := diag.RegisteredPlatforms()
	for _, want := range []string{"linux", "android", "darwin", "ios", "windows"} {
		assert.Contains(t, platforms, want)
	}
}

func TestRegister_DuplicatePlatformPanics(t *testing.T) {
	factory := func(logger logr.Logger, config diag.Config) (diag.Sampler, error) {
		return nil, nil
	}
	assert.Panics(t, func() { diag.Register("linux", factory) })
	assert.Panics(t, func() { diag.Register("windows", nil) })
}

func TestSamplerCapabilities(t *testing.T) {
	tests := []struct {
		goos           string
		ticks          bool
		nativePressure bool
	}{
		{goos: "linux", ticks: true, nativePressure: false},
		{goos: "android", ticks: true, nativePressure: false},
		{goos: "darwin", ticks: false, nativePressure: false},
		{goos: "windows", ticks: false, nativePressure: true},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			sampler, err := diag.NewSamplerFor(tt.goos, logr.Discard(), diag.Config{})
			require.NoError(t, err)
			caps := sampler.Capabilities()
			assert.Equal(t, tt.ticks, caps.UsesTickCounters)
			assert.Equal(t, tt.nativePressure, caps.SupportsNativePressure)
			assert.True(t, caps.SupportsSystemMemory)
		})
	}
	diag.CloseDefaultListener()
}
