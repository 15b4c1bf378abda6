/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exports strategy benchmarks as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/llm-d/llm-d-allocation-engine/pkg/solver"
)

const namespace = "allocator"

// Metric label names
const (
	LabelStrategy = "strategy"
	LabelStatus   = "status"
	LabelWinner   = "winner"
	LabelOutcome  = "outcome"
)

// Recorder implements solver.Recorder on a Prometheus registry.
type Recorder struct {
	strategyRuns     *prometheus.CounterVec
	strategyDuration *prometheus.HistogramVec
	strategyScore    *prometheus.GaugeVec
	solves           *prometheus.CounterVec
	attempts         *prometheus.CounterVec
	searchNodes      prometheus.Histogram
}

var _ solver.Recorder = (*Recorder)(nil)

// NewRecorder registers the allocator metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		strategyRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_runs_total",
			Help:      "Strategy runs by terminal status",
		}, []string{LabelStrategy, LabelStatus}),
		strategyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_duration_seconds",
			Help:      "Wall-clock time of a strategy run",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{LabelStrategy}),
		strategyScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "strategy_score",
			Help:      "Canonical score of the last feasible allocation of a strategy",
		}, []string{LabelStrategy}),
		solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Solves by status and winning strategy",
		}, []string{LabelStatus, LabelWinner}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "randomized",
			Name:      "attempts_total",
			Help:      "Randomized construction attempts by outcome",
		}, []string{LabelOutcome}),
		searchNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exact",
			Name:      "search_nodes",
			Help:      "Search nodes explored by an exact run",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}),
	}
}

func (r *Recorder) ObserveStrategy(record *solver.BenchmarkRecord) {
	r.strategyRuns.WithLabelValues(record.Strategy, string(record.Status)).Inc()
	r.strategyDuration.WithLabelValues(record.Strategy).Observe(record.Elapsed.Seconds())
	if record.Score != nil {
		r.strategyScore.WithLabelValues(record.Strategy).Set(*record.Score)
	}
	if record.Search != nil {
		r.searchNodes.Observe(float64(record.Search.Nodes))
	}
	if a := record.Attempts; a != nil {
		r.attempts.WithLabelValues("completed").Add(float64(a.Completed))
		r.attempts.WithLabelValues("discarded").Add(float64(a.Attempts - a.Completed))
	}
}

func (r *Recorder) ObserveSolve(report *solver.Report) {
	winner := report.WinningStrategy
	if winner == "" {
		winner = "none"
	}
	r.solves.WithLabelValues(string(report.Status), winner).Inc()
}
