// Package metrics declares the prometheus collectors of the service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewvault_ingestions_total",
			Help: "Total number of submission ingestions by result",
		},
		[]string{"result"},
	)

	IngestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "previewvault_ingestion_duration_seconds",
			Help:    "End-to-end ingestion duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	EngineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "previewvault_engine_duration_seconds",
			Help:    "Duration of ffmpeg invocations in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job", "status"},
	)

	EngineInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "previewvault_engine_in_flight",
			Help: "Number of ffmpeg jobs currently running on the worker pool",
		},
	)

	AccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewvault_access_total",
			Help: "Total number of customer link evaluations by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		IngestionsTotal,
		IngestionDuration,
		EngineDuration,
		EngineInFlight,
		AccessTotal,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEngine records one engine invocation
func ObserveEngine(job string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EngineDuration.WithLabelValues(job, status).Observe(d.Seconds())
}

// ObserveIngestion records one finished ingestion
func ObserveIngestion(result string, d time.Duration) {
	IngestionsTotal.WithLabelValues(result).Inc()
	IngestionDuration.Observe(d.Seconds())
}
