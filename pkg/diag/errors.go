// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package diag

import "errors"

var (
	// ErrSourceUnavailable reports that the OS counter source backing a
	// sample could not be read: the file is missing, access was denied,
	// or the content did not parse. It is surfaced once per call and
	// never retried internally; the caller decides whether to skip the
	// cycle.
	ErrSourceUnavailable = errors.New("metrics source unavailable")

	// ErrUnsupportedPlatform is returned by the factory when no sampler
	// exists for the running platform. It signals a build or deployment
	// mismatch and is not recoverable at runtime.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrParse reports malformed counter text. It stays internal to the
	// parsing layer; samplers wrap it into ErrSourceUnavailable before
	// returning.
	ErrParse = errors.New("malformed counter data")
)
