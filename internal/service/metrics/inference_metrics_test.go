package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveInference(t *testing.T) {
	before := testutil.ToFloat64(InferenceErrors.WithLabelValues("/forecast"))

	ObserveInference("/forecast", time.Now(), nil)
	ObserveInference("/forecast", time.Now(), errors.New("timeout"))

	assert.Equal(t, before+1, testutil.ToFloat64(InferenceErrors.WithLabelValues("/forecast")))
	assert.Equal(t, 1, testutil.CollectAndCount(InferenceLatency))
}
