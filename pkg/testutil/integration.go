// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package testutil provides helpers for integration tests that touch
// real host interfaces.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RequireLinux skips the test if not running on Linux.
func RequireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("Test requires Linux")
	}
}

// RequireProcfs skips the test unless a readable procfs is mounted at
// the given path with the files the tick-based samplers consume.
func RequireProcfs(t *testing.T, procPath string) {
	t.Helper()
	RequireLinux(t)

	for _, rel := range []string{"stat", "meminfo", filepath.Join("self", "stat")} {
		if _, err := os.Stat(filepath.Join(procPath, rel)); err != nil {
			t.Skipf("Test requires %s: %v", filepath.Join(procPath, rel), err)
		}
	}
}
