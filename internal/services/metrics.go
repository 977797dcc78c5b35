package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the query pipeline
type Metrics struct {
	Queries      prometheus.Counter
	CacheHits    prometheus.Counter
	Denials      prometheus.Counter
	Escalations  *prometheus.CounterVec
	QueryLatency prometheus.Histogram
	QueryErrors  *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		Queries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultrag_queries_total",
			Help: "Total number of queries processed by the pipeline",
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultrag_cache_hits_total",
			Help: "Total number of queries served from the answer cache",
		}),

		Denials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultrag_denials_total",
			Help: "Total number of queries classified as access denied",
		}),

		Escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultrag_escalations_total",
			Help: "Total number of access escalation requests by outcome",
		}, []string{"outcome"}), // "sent" or "failed"

		QueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultrag_query_duration_seconds",
			Help:    "End-to-end query latency in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, // cache hits vs full generation
		}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultrag_query_errors_total",
			Help: "Total number of query errors by type",
		}, []string{"error_type"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}
