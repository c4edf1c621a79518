// Package metrics is the always-on Prometheus variant of a counters/
// gauges recorder for a single connection: the same label-per-tracked-
// value split a StatsD-or-Prometheus stats layer would use, minus the
// StatsD/JSON half this repository has no use for.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder tracks one connection's lifetime counters. A nil *Recorder is
// valid everywhere it's used — attaching metrics to a Connection is
// optional, so every method is a safe no-op on a nil receiver.
type Recorder struct {
	BytesSent         prometheus.Counter
	BytesRecv         prometheus.Counter
	RequestsCompleted prometheus.Counter
	RequestsFailed    prometheus.Counter
	BreakerTrips      prometheus.Counter
	Connected         prometheus.Gauge
}

// NewRecorder builds a Recorder with constLabels applied to every metric
// (host and port, in practice). Callers running many connections
// distinguish them this way; label wiring is the embedder's job, not the
// recorder's.
func NewRecorder(namespace, subsystem string, constLabels prometheus.Labels) *Recorder {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	return &Recorder{
		BytesSent:         counter("bytes_sent_total", "bytes written to the server socket"),
		BytesRecv:         counter("bytes_recv_total", "bytes read from the server socket"),
		RequestsCompleted: counter("requests_completed_total", "INSERT requests that reached end-of-stream"),
		RequestsFailed:    counter("requests_failed_total", "INSERT requests that failed or were dropped"),
		BreakerTrips:      counter("breaker_trips_total", "times the cooldown breaker tripped"),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "connected",
			Help:        "1 if the connection is currently established, 0 otherwise",
			ConstLabels: constLabels,
		}),
	}
}

// Collectors returns every metric so a caller can register them with a
// prometheus.Registerer in one call.
func (r *Recorder) Collectors() []prometheus.Collector {
	if r == nil {
		return nil
	}
	return []prometheus.Collector{
		r.BytesSent, r.BytesRecv, r.RequestsCompleted, r.RequestsFailed,
		r.BreakerTrips, r.Connected,
	}
}

func (r *Recorder) AddBytesSent(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.BytesSent.Add(float64(n))
}

func (r *Recorder) AddBytesRecv(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.BytesRecv.Add(float64(n))
}

func (r *Recorder) IncRequestsCompleted() {
	if r == nil {
		return
	}
	r.RequestsCompleted.Inc()
}

func (r *Recorder) IncRequestsFailed() {
	if r == nil {
		return
	}
	r.RequestsFailed.Inc()
}

func (r *Recorder) AddRequestsFailed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RequestsFailed.Add(float64(n))
}

func (r *Recorder) IncBreakerTrips() {
	if r == nil {
		return
	}
	r.BreakerTrips.Inc()
}

func (r *Recorder) SetConnected(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.Connected.Set(1)
	} else {
		r.Connected.Set(0)
	}
}
