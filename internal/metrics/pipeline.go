package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "annotator",
			Name:      "pipeline_operations_total",
			Help:      "Total pipeline operations by outcome",
		},
		[]string{"operation", "status"}, // operation: fetch/convert/extract/publish
	)

	RecordsExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "annotator",
			Name:      "records_extracted_total",
			Help:      "Total annotation records extracted from documents",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineOpsTotal)
	prometheus.MustRegister(RecordsExtractedTotal)
	pipelineMetricsRegistered = true
}
