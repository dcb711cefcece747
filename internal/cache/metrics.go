// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the cache updates. Callers that
// don't want metrics can pass NewNoopMetrics(), which is wired to the same
// interface so the cache never has to nil-check.
type Metrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions prometheus.Counter
	FlushSecs prometheus.Histogram
}

// NewMetrics registers and returns a Metrics that reports to reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corefs",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Sector cache hits.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corefs",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Sector cache misses.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corefs",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Sector cache line evictions.",
		}),
		FlushSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "corefs",
			Subsystem: "cache",
			Name:      "flush_seconds",
			Help:      "Time spent writing back dirty lines in flush().",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Evictions, m.FlushSecs)
	}
	return m
}

// NewNoopMetrics returns a Metrics whose collectors are never registered,
// for tests and callers that don't care about observability.
func NewNoopMetrics() *Metrics {
	return NewMetrics(nil)
}
