// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jhobel85/RuntimeDiagToolkit/internal/config"
	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
	_ "github.com/jhobel85/RuntimeDiagToolkit/pkg/diag/samplers"
)

var (
	configPath string
	verbosity  int
)

func main() {
	root := &cobra.Command{
		Use:          "runtimediag",
		Short:        "Runtime health metrics for the current process and host",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity (higher is noisier)")

	root.AddCommand(newSampleCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds a zap-backed logr.Logger honoring the -v flag.
func newLogger() (logr.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLog, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }
}

// loadConfig resolves the effective configuration: file when --config
// is set, defaults otherwise.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildSampler constructs the platform sampler for this host, wrapped
// adaptively when the configuration asks for it.
func buildSampler(logger logr.Logger, cfg config.Config) (diag.Sampler, error) {
	sampler, err := diag.NewPlatformSampler(logger, diag.Config{
		HostProcPath: cfg.HostProcPath,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Adaptive {
		return diag.NewAdaptiveSampler(sampler, cfg.SamplingInterval.Std(), logger), nil
	}
	return sampler, nil
}
