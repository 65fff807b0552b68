// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics writes the outcome of a launcher run in the
// Prometheus text format, for collection by node_exporter's textfile
// collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hostlaunch"

// Run collects the gauges for one run. Every series carries the host
// label.
type Run struct {
	registry *prometheus.Registry

	exitCode      *prometheus.GaugeVec
	timestamp     *prometheus.GaugeVec
	stageDuration *prometheus.GaugeVec
	reused        *prometheus.GaugeVec

	host string
}

// NewRun creates the collectors for host.
func NewRun(host string) *Run {
	run := &Run{
		registry: prometheus.NewRegistry(),
		host:     host,
		exitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_exit_code",
			Help:      "Exit code of the most recent launcher run.",
		}, []string{"host"}),
		timestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent launcher run finished.",
		}, []string{"host"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the most recent run.",
		}, []string{"host", "stage"}),
		reused: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "environment_reused",
			Help:      "1 if the most recent run reused an existing environment, 0 if it built one.",
		}, []string{"host"}),
	}
	run.registry.MustRegister(run.exitCode, run.timestamp, run.stageDuration, run.reused)
	return run
}

// ObserveStage records how long stage took.
func (r *Run) ObserveStage(stage string, duration time.Duration) {
	r.stageDuration.WithLabelValues(r.host, stage).Set(duration.Seconds())
}

// SetEnvironmentReused records whether the environment was reused.
func (r *Run) SetEnvironmentReused(reused bool) {
	value := 0.0
	if reused {
		value = 1
	}
	r.reused.WithLabelValues(r.host).Set(value)
}

// Finish records the exit code and completion time.
func (r *Run) Finish(exitCode int, finishedAt time.Time) {
	r.exitCode.WithLabelValues(r.host).Set(float64(exitCode))
	r.timestamp.WithLabelValues(r.host).Set(float64(finishedAt.UnixNano()) / 1e9)
}

// WriteFile writes every gauge to path. The file is replaced
// atomically so the collector never reads a partial write.
func (r *Run) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

// Gatherer exposes the registry for tests and debugging.
func (r *Run) Gatherer() prometheus.Gatherer {
	return r.registry
}
