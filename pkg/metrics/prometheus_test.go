package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordModelFit("SeasonalARIMA", "ok")
	r.RecordModelFit("SeasonalARIMA", "ok")
	r.RecordModelFit("EnsembleAuto", "fallback")
	r.RecordUpdate("AAPL", "updated")
	r.RecordForecast("AAPL", 187.5)
	r.RecordWalkForwardStep("AAPL")
	r.RecordModelLatency("SeasonalARIMA", 0.2)
	r.RecordError("update")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.modelFits.WithLabelValues("SeasonalARIMA", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.modelFits.WithLabelValues("EnsembleAuto", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.updates.WithLabelValues("AAPL", "updated")))
	assert.Equal(t, 187.5, testutil.ToFloat64(r.lastForecast.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("update")))

	n, err := testutil.GatherAndCount(reg, "fincast_model_fit_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
