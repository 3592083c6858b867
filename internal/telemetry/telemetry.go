package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the prometheus instruments exposed on /metrics.
type Metrics struct {
	QueriesTotal      prometheus.Counter
	QueryFailures     prometheus.Counter
	QueryDuration     prometheus.Histogram
	ToolCallsTotal    *prometheus.CounterVec
	DocumentsIngested prometheus.Counter
	ChunksIngested    prometheus.Counter
	CoursesLoaded     prometheus.Gauge
}

// NewMetrics registers all instruments against reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursechat_queries_total",
			Help: "Total queries answered.",
		}),
		QueryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursechat_query_failures_total",
			Help: "Queries that ended in an error response.",
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursechat_query_duration_seconds",
			Help:    "End to end query latency including tool rounds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coursechat_tool_calls_total",
			Help: "Tool executions requested by the model.",
		}, []string{"tool"}),
		DocumentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursechat_documents_ingested_total",
			Help: "Course documents processed into the vector store.",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "coursechat_chunks_ingested_total",
			Help: "Content chunks written to the vector store.",
		}),
		CoursesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coursechat_courses_loaded",
			Help: "Courses currently present in the catalog.",
		}),
	}
}
