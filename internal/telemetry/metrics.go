package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения workflow.
var (
	// RunsTotal — количество запусков workflow по статусам.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeflow_runs_total",
		Help: "Total workflow runs by terminal status",
	}, []string{"status"})

	// RunDuration — длительность запусков workflow.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nodeflow_run_duration_seconds",
		Help:    "Workflow run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	// NodeExecutionsTotal — количество выполнений узлов.
	NodeExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeflow_node_executions_total",
		Help: "Total node executions by type and status",
	}, []string{"node_type", "status"})

	// NodeDuration — длительность выполнения узлов по типам.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nodeflow_node_duration_seconds",
		Help:    "Node execution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"node_type"})

	// CacheLookupsTotal — обращения к кэшу результатов.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodeflow_cache_lookups_total",
		Help: "Execution cache lookups by result",
	}, []string{"result"})
)

// ObserveRun фиксирует завершённый запуск workflow.
func ObserveRun(status string, seconds float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(seconds)
}

// ObserveNode фиксирует выполнение узла.
func ObserveNode(nodeType string, success bool, seconds float64) {
	status := "failed"
	if success {
		status = "success"
	}
	NodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	NodeDuration.WithLabelValues(nodeType).Observe(seconds)
}

// ObserveCacheLookup фиксирует попадание или промах кэша.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}
