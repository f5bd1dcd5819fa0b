package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpsertOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appointments_upsert_outcomes_total",
		Help: "Upsert results by outcome (ok, ignored-stale, conflict, error)",
	}, []string{"outcome"})

	UpsertRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appointments_upsert_retries_total",
		Help: "Upsert attempts re-executed after a transient storage failure, by failure kind",
	}, []string{"kind"})

	UpsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "appointments_upsert_duration_seconds",
		Help:    "Wall time of an upsert including retries",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)
