// Package metrics provides Prometheus metrics for clover batch runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsLoaded tracks rows accepted at ingestion
	RecordsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "records_loaded_total",
			Help:      "Total number of admission records accepted at ingestion",
		},
	)

	// RecordsDropped tracks rows dropped at ingestion by reason
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "records_dropped_total",
			Help:      "Total number of admission records dropped at ingestion by reason",
		},
		[]string{"reason"},
	)

	// CandidatesMatched tracks match outcomes by pass and method
	CandidatesMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "candidates_total",
			Help:      "Total number of candidates matched by pass and method",
		},
		[]string{"state", "pass", "method"},
	)

	// MatchDuration tracks time spent matching one candidate
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "candidate_duration_seconds",
			Help:      "Duration of matching one candidate in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"strategy"},
	)

	// SearchRetries tracks retried index searches
	SearchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "search",
			Name:      "retries_total",
			Help:      "Total number of retried index searches",
		},
	)

	// ResultsWritten tracks staged results that changed
	ResultsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "staging",
			Name:      "results_written_total",
			Help:      "Total number of staged match results written by state",
		},
		[]string{"state"},
	)

	// PartitionsInFlight tracks state partitions currently being matched
	PartitionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "processor",
			Name:      "partitions_in_flight",
			Help:      "Number of state partitions currently being matched",
		},
	)

	// RunDuration tracks whole batch runs
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "processor",
			Name:      "run_duration_seconds",
			Help:      "Duration of batch runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"strategy", "status"},
	)

	// RankAnomalies tracks rank entries whose closing rank is below the opening rank
	RankAnomalies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "ranks",
			Name:      "anomalies",
			Help:      "Number of rank entries flagged as anomalies in the last run",
		},
	)
)
