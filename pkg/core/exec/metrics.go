// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operatorComputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layerexec_operator_compute_total",
		Help: "Total number of operator Compute calls",
	}, []string{"device", "op"})

	resolveFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layerexec_resolve_failures_total",
		Help: "Total number of nodes that failed to resolve or bind to an accumulator at load time",
	}, []string{"device", "op"})

	runDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "layerexec_run_duration_seconds",
		Help:    "Duration of Executable.Run calls",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"device"})

	shapeInferenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layerexec_shape_inference_total",
		Help: "Total number of shape inference passes over a graph",
	}, []string{"device"})

	allocatedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layerexec_allocated_bytes",
		Help: "Bytes of tensor storage requested by loaded executables",
	})
)
