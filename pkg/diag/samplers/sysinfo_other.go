// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !linux

package samplers

import "errors"

// readSysinfoMemory is the non-Linux stub; the procfs samplers only run
// on Linux-family platforms, but the package must compile everywhere
// for tests.
func readSysinfoMemory() (total, available uint64, err error) {
	return 0, 0, errors.New("sysinfo not supported on this platform")
}
