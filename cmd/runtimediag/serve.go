// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/jhobel85/RuntimeDiagToolkit/internal/config"
	"github.com/jhobel85/RuntimeDiagToolkit/internal/server"
	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

const shutdownGrace = 10 * time.Second

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics over HTTP with live config reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, sync := newLogger()
			defer sync()
			defer diag.CloseDefaultListener()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddress = listenAddr
			}

			sampler, err := buildSampler(logger, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if configPath != "" {
				watcher, err := config.NewWatcher(configPath, logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := watcher.Close(); err != nil {
						logger.Error(err, "failed to close config watcher")
					}
				}()
				go applyConfigUpdates(ctx, logger, watcher, sampler)
			}

			srv := &http.Server{
				Addr:    cfg.ListenAddress,
				Handler: server.New(logger, sampler).Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving metrics", "address", cfg.ListenAddress)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "HTTP bind address (overrides config)")
	return cmd
}

// applyConfigUpdates pushes sampling-interval changes from config
// reloads into the adaptive sampler.
func applyConfigUpdates(ctx context.Context, logger logr.Logger, watcher *config.Watcher, sampler diag.Sampler) {
	controls, ok := sampler.(diag.AdaptiveControls)
	if !ok {
		logger.V(1).Info("sampler is not adaptive, config reloads are inert")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-watcher.Updates():
			controls.SetSamplingInterval(cfg.SamplingInterval.Std())
			logger.Info("applied sampling interval from config reload",
				"interval", cfg.SamplingInterval.Std().String())
		}
	}
}
