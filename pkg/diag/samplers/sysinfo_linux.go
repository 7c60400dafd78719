// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux

package samplers

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readSysinfoMemory reads total and free system memory via the sysinfo
// syscall. Free RAM understates availability compared to MemAvailable
// (it excludes reclaimable page cache), but it is the best the kernel
// offers when /proc/meminfo is unreadable.
func readSysinfoMemory() (total, available uint64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, fmt.Errorf("sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return uint64(info.Totalram) * unit, uint64(info.Freeram) * unit, nil
}
