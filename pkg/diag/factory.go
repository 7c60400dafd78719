// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"fmt"
	"runtime"

	"github.com/go-logr/logr"
)

// goos is resolved once at startup; a variable so tests can exercise
// the unsupported-platform path.
var goos = runtime.GOOS

// NewPlatformSampler detects the running platform and constructs the
// sampler for it. The result is intended to live for the whole process;
// construct it once at bootstrap and share it.
//
// For a platform with no registered sampler the error wraps
// ErrUnsupportedPlatform. That is fatal by design: it signals a build
// or deployment mismatch, and no fallback sampler is substituted.
func NewPlatformSampler(logger logr.Logger, config Config) (Sampler, error) {
	return NewSamplerFor(goos, logger, config)
}

// NewSamplerFor constructs the sampler registered for an explicit GOOS
// value. Exposed for cross-platform tests; production code should use
// NewPlatformSampler.
func NewSamplerFor(goos string, logger logr.Logger, config Config) (Sampler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sampler config: %w", err)
	}
	factory, ok := lookupSampler(goos)
	if !ok {
		return nil, fmt.Errorf("%w: no sampler registered for %s (registered: %v)",
			ErrUnsupportedPlatform, goos, RegisteredPlatforms())
	}
	sampler, err := factory(logger, config.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("constructing %s sampler: %w", goos, err)
	}
	return sampler, nil
}
