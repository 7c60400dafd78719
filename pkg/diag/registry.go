// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import (
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// NewSamplerFunc constructs a platform sampler with the provided logger
// and configuration.
type NewSamplerFunc func(logger logr.Logger, config Config) (Sampler, error)

var (
	registry       = make(map[string]NewSamplerFunc)
	registryLogger = stdr.New(log.New(os.Stderr, "[diag.registry] ", log.LstdFlags))
)

// Register adds a sampler factory for a GOOS value. Platform sampler
// packages call this from init() so that importing them is enough to
// make their platform constructible. It panics if the platform already
// has a factory registered — two samplers claiming one platform is a
// programming error, not a runtime condition.
func Register(goos string, factory NewSamplerFunc) {
	if factory == nil {
		panic(fmt.Sprintf("nil sampler factory registered for %s", goos))
	}
	if _, exists := registry[goos]; exists {
		panic(fmt.Sprintf("sampler for %s already registered", goos))
	}
	registry[goos] = factory
	registryLogger.V(1).Info("registered platform sampler", "goos", goos)
}

// RegisteredPlatforms returns the GOOS values with a registered sampler.
func RegisteredPlatforms() []string {
	platforms := make([]string, 0, len(registry))
	for goos := range registry {
		platforms = append(platforms, goos)
	}
	return platforms
}

func lookupSampler(goos string) (NewSamplerFunc, bool) {
	factory, ok := registry[goos]
	return factory, ok
}
