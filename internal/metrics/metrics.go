// Package metrics holds the Prometheus instrumentation for parsing and ingest.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmlist_records_parsed_total",
		Help: "Records decoded by the stream parser",
	}, []string{"mode"}) // mode=full|diff

	recordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmlist_records_dropped_total",
		Help: "Records dropped by the stream parser",
	}, []string{"reason"}) // reason=malformed|oversized|truncated

	safeguardTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filmlist_safeguard_trips_total",
		Help: "Runaway values abandoned by the stream parser",
	})

	chunksDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmlist_chunks_delivered_total",
		Help: "Chunks handed to the persistence sink",
	}, []string{"mode"})

	ingestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filmlist_ingest_runs_total",
		Help: "Ingest runs by mode and outcome",
	}, []string{"mode", "outcome"}) // outcome=ok|failed|cancelled

	ingestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filmlist_ingest_duration_seconds",
		Help:    "Wall time of ingest runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"mode"})

	ingestProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filmlist_ingest_progress_records",
		Help: "Records ingested by the active run",
	})

	transientDeleteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filmlist_transient_delete_errors_total",
		Help: "Failures to delete decompressed input after ingest",
	})
)

func AddRecordsParsed(mode string, n int) { recordsParsed.WithLabelValues(mode).Add(float64(n)) }
func IncRecordDropped(reason string)       { recordsDropped.WithLabelValues(reason).Inc() }
func IncSafeguardTrip()                    { safeguardTrips.Inc() }
func IncChunkDelivered(mode string)        { chunksDelivered.WithLabelValues(mode).Inc() }
func SetIngestProgress(n int)              { ingestProgress.Set(float64(n)) }
func IncTransientDeleteError()             { transientDeleteErrors.Inc() }

// RecordIngestRun records the outcome and duration of one ingest run.
func RecordIngestRun(mode, outcome string, seconds float64) {
	ingestRuns.WithLabelValues(mode, outcome).Inc()
	ingestDuration.WithLabelValues(mode).Observe(seconds)
}

// WriteTextfile writes all registered metrics in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
