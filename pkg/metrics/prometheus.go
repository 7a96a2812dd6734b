package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	modelFits    *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	updates      *prometheus.CounterVec
	lastForecast *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
}

// New registers the recorder's collectors on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		modelFits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_model_fits_total",
				Help: "Model train+predict calls by result",
			},
			[]string{"model", "result"},
		),
		modelLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_model_fit_duration_seconds",
				Help:    "Duration of one train+predict call",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model"},
		),
		steps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_walkforward_steps_total",
				Help: "Walk-forward rows produced",
			},
			[]string{"ticker"},
		),
		updates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_updates_total",
				Help: "Artifact update outcomes",
			},
			[]string{"ticker", "status"},
		),
		lastForecast: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_last_forecast",
				Help: "Latest forward forecast for an instrument",
			},
			[]string{"ticker"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordModelFit(model, result string) {
	r.modelFits.WithLabelValues(model, result).Inc()
}

func (r *Recorder) RecordModelLatency(model string, seconds float64) {
	r.modelLatency.WithLabelValues(model).Observe(seconds)
}

func (r *Recorder) RecordWalkForwardStep(ticker string) {
	r.steps.WithLabelValues(ticker).Inc()
}

func (r *Recorder) RecordUpdate(ticker, status string) {
	r.updates.WithLabelValues(ticker, status).Inc()
}

func (r *Recorder) RecordForecast(ticker string, value float64) {
	r.lastForecast.WithLabelValues(ticker).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
