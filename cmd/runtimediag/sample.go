// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

func newSampleCommand() *cobra.Command {
	var (
		output string
		warmup time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Collect one snapshot of all metric families and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, sync := newLogger()
			defer sync()
			defer diag.CloseDefaultListener()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sampler, err := buildSampler(logger, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			// Delta-based CPU accounting needs two readings; prime the
			// baseline, wait, then take the real snapshot.
			if _, err := sampler.SampleCPU(ctx); err != nil {
				logger.V(1).Info("cpu baseline unavailable", "error", err.Error())
			}
			select {
			case <-time.After(warmup):
			case <-ctx.Done():
				return ctx.Err()
			}

			snap, err := collectSnapshot(ctx, logger, sampler)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the snapshot to a file instead of stdout")
	cmd.Flags().DurationVar(&warmup, "warmup", time.Second, "delay between the CPU baseline read and the snapshot")
	return cmd
}

// collectSnapshot gathers every section, tolerating unavailable
// sources as long as at least one section succeeds.
func collectSnapshot(ctx context.Context, logger logr.Logger, sampler diag.Sampler) (diag.Snapshot, error) {
	var snap diag.Snapshot
	var firstErr error
	failures := 0

	record := func(kind diag.MetricKind, err error) {
		failures++
		if firstErr == nil {
			firstErr = err
		}
		logger.V(1).Info("section unavailable", "kind", string(kind), "error", err.Error())
	}

	if cpu, err := sampler.SampleCPU(ctx); err != nil {
		record(diag.MetricKindCPU, err)
	} else {
		snap.CPUUsage = &cpu
	}
	if mem, err := sampler.SampleMemory(ctx); err != nil {
		record(diag.MetricKindMemory, err)
	} else {
		snap.MemorySnapshot = &mem
	}
	if gc, err := sampler.SampleGC(ctx); err != nil {
		record(diag.MetricKindGC, err)
	} else {
		snap.GCStats = &gc
	}
	if pool, err := sampler.SampleThreadPool(ctx); err != nil {
		record(diag.MetricKindThreadPool, err)
	} else {
		snap.ThreadPoolStats = &pool
	}

	if failures == 4 {
		return snap, fmt.Errorf("no metric source available: %w", firstErr)
	}
	return snap, nil
}
