// Copyright 2025 The Embedded Redis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedded

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector receives instance lifecycle events.  The default is
// a no-op; pass a PrometheusMetrics to ClusterBuilder.Metrics to get
// counters and durations out of a test cluster (useful when the same
// topology is launched hundreds of times in a suite).
type MetricsCollector interface {
	// Started records a successful launch and the time from spawn to
	// the ready line.
	Started(name string, readyAfter time.Duration)

	// Stopped records a clean stop and how long the teardown took.
	Stopped(name string, stopTook time.Duration)

	// LaunchFailed records a spawn failure or a process that closed
	// its output before reporting readiness.
	LaunchFailed(name string)
}

type noopMetrics struct{}

func (noopMetrics) Started(string, time.Duration) {}
func (noopMetrics) Stopped(string, time.Duration) {}
func (noopMetrics) LaunchFailed(string) {}

// PrometheusMetrics implements MetricsCollector on a private registry,
// so that repeated cluster builds in one test binary never collide on
// metric registration.
type PrometheusMetrics struct {
	starts        *prometheus.CounterVec
	stops         *prometheus.CounterVec
	launchFails   *prometheus.CounterVec
	active        prometheus.Gauge
	readyDuration *prometheus.HistogramVec
	stopDuration  *prometheus.HistogramVec
	registry      *prometheus.Registry
}

func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "embedded_redis"
	}
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}
	m.starts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_starts_total",
			Help:      "Instances that launched and became ready",
		},
		[]string{"instance"},
	)
	m.stops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_stops_total",
			Help:      "Instances stopped cleanly",
		},
		[]string{"instance"},
	)
	m.launchFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_launch_failures_total",
			Help:      "Launches that failed before readiness",
		},
		[]string{"instance"},
	)
	m.active = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances_active",
			Help:      "Instances currently running",
		},
	)
	m.readyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instance_ready_duration_seconds",
			Help:      "Time from spawn to the ready line",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"instance"},
	)
	m.stopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instance_stop_duration_seconds",
			Help:      "Time from SIGTERM to process exit",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"instance"},
	)
	m.registry.MustRegister(m.starts, m.stops, m.launchFails,
		m.active, m.readyDuration, m.stopDuration)
	return m
}

// Registry exposes the private registry, e.g. for mounting a /metrics
// endpoint with promhttp.HandlerFor.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) Started(name string, readyAfter time.Duration) {
	m.starts.WithLabelValues(name).Inc()
	m.readyDuration.WithLabelValues(name).Observe(readyAfter.Seconds())
	m.active.Inc()
}

func (m *PrometheusMetrics) Stopped(name string, stopTook time.Duration) {
	m.stops.WithLabelValues(name).Inc()
	m.stopDuration.WithLabelValues(name).Observe(stopTook.Seconds())
	m.active.Dec()
}

func (m *PrometheusMetrics) LaunchFailed(name string) {
	m.launchFails.WithLabelValues(name).Inc()
}
