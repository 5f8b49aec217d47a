package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detection Prometheus metrics.
var (
	DetectionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "detection_requests_total",
			Help:      "Total number of outbound detection requests",
		},
		[]string{"status"},
	)

	DetectionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "detection_request_duration_seconds",
			Help:      "Outbound detection request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	DetectionWorkflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "detection_workflows_total",
			Help:      "Detection workflows by entry variant and outcome kind",
		},
		[]string{"variant", "outcome"},
	)

	DetectionCostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "detection_estimated_cost_total",
			Help:      "Sum of estimated cost units attached to sent detection requests",
		},
	)

	DetectionBudgetRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "detection_budget_cost_remaining",
			Help:      "Remaining detection cost budget (-1 when unlimited)",
		},
		[]string{"period"},
	)
)

var detectionMetricsRegistered bool

// RegisterDetectionMetrics registers detection metrics. Must be called once from main.
func RegisterDetectionMetrics() {
	if detectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(DetectionRequestsTotal)
	prometheus.MustRegister(DetectionRequestDuration)
	prometheus.MustRegister(DetectionWorkflowsTotal)
	prometheus.MustRegister(DetectionCostTotal)
	prometheus.MustRegister(DetectionBudgetRemaining)
	detectionMetricsRegistered = true
}
