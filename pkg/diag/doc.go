// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package diag samples process- and system-level runtime health metrics
// (CPU, memory, collector statistics, worker-pool statistics) on a
// recurring cadence and exposes them behind one platform-independent
// interface.
//
// A platform sampler is constructed once per process through
// NewPlatformSampler; the samplers package registers one implementation
// per supported GOOS (linux, android, darwin/ios, windows) and must be
// imported for its side effects:
//
//	import _ "github.com/jhobel85/RuntimeDiagToolkit/pkg/diag/samplers"
//
// For battery-constrained deployments, wrap the sampler in an
// AdaptiveSampler and drive OnForegrounded/OnBackgrounded from the host
// lifecycle; queries then serve cached snapshots within the current
// sampling interval and back off exponentially in the background.
package diag
