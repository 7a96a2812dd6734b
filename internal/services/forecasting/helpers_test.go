package forecasting

import (
	"context"
	"math"
	"sync"
	"time"

	"FinCast/internal/domain/models"
)

func weeklySeries(values []float64) models.Series {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.Observation, len(values))
	for i, v := range values {
		pts[i] = models.Observation{Date: start.AddDate(0, 0, 7*i), Value: v}
	}
	return models.Series{Instrument: "TEST", Points: pts}
}

// seasonalValues is a trend plus a 52-week cycle plus a small deterministic wobble.
func seasonalValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i)
		out[i] = 100 + 0.3*t + 8*math.Sin(2*math.Pi*t/52) + 0.7*math.Sin(1.7*t)
	}
	return out
}

type memParams struct {
	mu   sync.Mutex
	data map[string]models.ARIMAParams
	puts int
}

func newMemParams() *memParams {
	return &memParams{data: make(map[string]models.ARIMAParams)}
}

func (m *memParams) Get(_ context.Context, k string) (models.ARIMAParams, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[k]
	return p, ok, nil
}

func (m *memParams) Put(_ context.Context, k string, p models.ARIMAParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[k] = p
	m.puts++
	return nil
}

func (m *memParams) Delete(_ context.Context, k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, k)
	return nil
}

type countingSelector struct {
	calls  int
	params models.ARIMAParams
}

func (c *countingSelector) Select(_ context.Context, _ []float64) (models.ARIMAParams, error) {
	c.calls++
	return c.params, nil
}
