// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package server exposes the sampler over HTTP: JSON snapshot routes,
// app lifecycle signalling, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhobel85/RuntimeDiagToolkit/internal/rules"
	"github.com/jhobel85/RuntimeDiagToolkit/pkg/diag"
)

const sampleTimeout = 5 * time.Second

// Server routes HTTP requests to a sampler. If the sampler also
// implements diag.AdaptiveControls, the lifecycle routes are live;
// otherwise they return 404.
type Server struct {
	logger   logr.Logger
	sampler  diag.Sampler
	controls diag.AdaptiveControls
	router   *mux.Router
	registry *prometheus.Registry
}

func New(logger logr.Logger, sampler diag.Sampler) *Server {
	s := &Server{
		logger:   logger.WithName("server"),
		sampler:  sampler,
		registry: prometheus.NewRegistry(),
	}
	s.controls, _ = sampler.(diag.AdaptiveControls)
	s.registry.MustRegister(newSamplerCollector(sampler, s.logger))

	r := mux.NewRouter()
	r.HandleFunc("/api/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/{kind}", s.handleMetricKind).Methods(http.MethodGet)
	r.HandleFunc("/api/findings", s.handleFindings).Methods(http.MethodGet)
	if s.controls != nil {
		r.HandleFunc("/api/lifecycle/{state}", s.handleLifecycle).Methods(http.MethodPost)
	}
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// sampleAll gathers every section, degrading to nil sections rather
// than failing the whole snapshot when a single source is unavailable.
// It fails only when every section errors.
func (s *Server) sampleAll(ctx context.Context) (diag.Snapshot, error) {
	var snap diag.Snapshot
	var firstErr error
	errs := 0

	record := func(err error) {
		errs++
		if firstErr == nil {
			firstErr = err
		}
		s.logger.V(1).Info("section unavailable", "error", err.Error())
	}

	if cpu, err := s.sampler.SampleCPU(ctx); err != nil {
		record(err)
	} else {
		snap.CPUUsage = &cpu
	}
	if mem, err := s.sampler.SampleMemory(ctx); err != nil {
		record(err)
	} else {
		snap.MemorySnapshot = &mem
	}
	if gc, err := s.sampler.SampleGC(ctx); err != nil {
		record(err)
	} else {
		snap.GCStats = &gc
	}
	if pool, err := s.sampler.SampleThreadPool(ctx); err != nil {
		record(err)
	} else {
		snap.ThreadPoolStats = &pool
	}

	if errs == 4 {
		return snap, firstErr
	}
	return snap, nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), sampleTimeout)
	defer cancel()

	snap, err := s.sampleAll(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) handleMetricKind(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), sampleTimeout)
	defer cancel()

	var payload any
	var err error
	switch diag.MetricKind(mux.Vars(r)["kind"]) {
	case diag.MetricKindCPU:
		payload, err = s.sampler.SampleCPU(ctx)
	case diag.MetricKindMemory:
		payload, err = s.sampler.SampleMemory(ctx)
	case diag.MetricKindGC:
		payload, err = s.sampler.SampleGC(ctx)
	case diag.MetricKindThreadPool:
		payload, err = s.sampler.SampleThreadPool(ctx)
	default:
		http.Error(w, fmt.Sprintf("unknown metric kind %q, supported: %v",
			mux.Vars(r)["kind"], diag.MetricKinds()), http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, payload)
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), sampleTimeout)
	defer cancel()

	snap, err := s.sampleAll(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	findings := rules.Evaluate(snap)
	if findings == nil {
		findings = []rules.Finding{}
	}
	s.writeJSON(w, findings)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	switch mux.Vars(r)["state"] {
	case "foreground":
		s.controls.OnForegrounded()
	case "background":
		s.controls.OnBackgrounded()
	default:
		http.Error(w, "unknown lifecycle state", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]any{
		"background":         s.controls.IsBackground(),
		"samplingIntervalMs": s.controls.CurrentSamplingInterval().Milliseconds(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(err, "failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, diag.ErrSourceUnavailable) {
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}
