package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	batchDocumentsTotal *prometheus.CounterVec
	batchDuration       prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used for batch
// observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		batchDocumentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_batch_documents_total",
			Help: "Total number of documents processed by batch runs.",
		}, []string{"status"})

		batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grader_batch_duration_seconds",
			Help:    "Wall-clock duration of complete batch runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		})

		prometheus.MustRegister(batchDocumentsTotal, batchDuration)
	})
}

// BatchDocuments exposes the per-status document counter.
func BatchDocuments() *prometheus.CounterVec {
	RegisterMetrics()
	return batchDocumentsTotal
}

// BatchDuration exposes the batch run duration histogram.
func BatchDuration() prometheus.Histogram {
	RegisterMetrics()
	return batchDuration
}
