package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fincast",
			Subsystem: "inference",
			Name:      "latency_seconds",
			Help:      "Latency of model server calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	InferenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fincast",
			Subsystem: "inference",
			Name:      "errors_total",
			Help:      "Failed model server calls by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(InferenceLatency, InferenceErrors)
	})
}

// ObserveInference records one model server call started at start.
func ObserveInference(endpoint string, start time.Time, err error) {
	InferenceLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		InferenceErrors.WithLabelValues(endpoint).Inc()
	}
}
