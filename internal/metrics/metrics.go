package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels runs and simulations that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels failed runs.
	OutcomeError = "error"
	// OutcomeNotFound labels simulations for an airport absent from the snapshot.
	OutcomeNotFound = "not_found"
	// OutcomeInvalid labels simulations rejected for bad arguments.
	OutcomeInvalid = "invalid"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydelay",
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	pipelineDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skydelay",
			Name:      "pipeline_run_seconds",
			Help:      "Pipeline run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	droppedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skydelay",
			Name:      "malformed_records_dropped_total",
			Help:      "Flight records dropped for missing both scheduled clock times.",
		},
	)

	publishedRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "skydelay",
			Name:      "published_rows",
			Help:      "Row count of each table in the currently published snapshot.",
		},
		[]string{"table"},
	)

	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skydelay",
			Name:      "simulations_total",
			Help:      "Total number of cascade simulations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches skydelay collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pipelineRunsTotal,
		pipelineDurationSeconds,
		droppedRecordsTotal,
		publishedRows,
		simulationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePipelineRun records a run duration and outcome label.
func ObservePipelineRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	pipelineRunsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	pipelineDurationSeconds.Observe(duration.Seconds())
}

// AddDroppedRecords counts malformed records excluded from a run.
func AddDroppedRecords(n int) {
	if n > 0 {
		droppedRecordsTotal.Add(float64(n))
	}
}

// SetPublishedRows records the row count of a published table.
func SetPublishedRows(table string, rows int) {
	publishedRows.WithLabelValues(table).Set(float64(rows))
}

// ObserveSimulation counts one simulation request.
func ObserveSimulation(outcome string) {
	switch outcome {
	case OutcomeNotFound, OutcomeInvalid, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	simulationsTotal.WithLabelValues(outcome).Inc()
}
