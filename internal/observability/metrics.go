package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_etl"

// Run outcomes recorded on RunsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge
	PipelineState     prometheus.Gauge

	// Per-record counters.
	RecordsParsed   prometheus.Counter
	RecordsFiltered prometheus.Counter
	RecordsSkipped  *prometheus.CounterVec // labels: reason
	EventsEnriched  prometheus.Counter
	EventsPersisted prometheus.Counter
	EventsCreated   prometheus.Counter
	FatalRiskEvents prometheus.Counter

	ScoreValue prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-parse-enrich-persist run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccessfulRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		PipelineState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_state",
			Help:      "Current run stage: 0 idle, 1 fetching, 2 parsing, 3 enriching, 4 persisting, 5 updating bookmark.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Feed records inside the region of interest emitted by the parser.",
		}),
		RecordsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_filtered_total",
			Help:      "Feed records dropped by the region filter.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Feed records skipped as malformed or unscorable, by reason.",
		}, []string{"reason"}),
		EventsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_enriched_total",
			Help:      "Events scored and enriched.",
		}),
		EventsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_persisted_total",
			Help:      "Events written to the event store.",
		}),
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_created_total",
			Help:      "Events that were new to the event store.",
		}),
		FatalRiskEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fatal_risk_events_total",
			Help:      "Enriched events flagged as a fatal risk.",
		}),
		ScoreValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_value",
			Help:      "Distribution of computed S values.",
			Buckets:   []float64{-2, -1, 0, 1, 2, 3, 3.5, 4, 4.5, 5, 6},
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// multiple tests can each build their own.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.LastSuccessfulRun,
		m.PipelineState,
		m.RecordsParsed,
		m.RecordsFiltered,
		m.RecordsSkipped,
		m.EventsEnriched,
		m.EventsPersisted,
		m.EventsCreated,
		m.FatalRiskEvents,
		m.ScoreValue,
	}
}
