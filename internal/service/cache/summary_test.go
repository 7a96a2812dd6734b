package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
)

type countingBuilder struct {
	calls int
	err   error
}

func (b *countingBuilder) Build(context.Context) (*models.ForecastSummary, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &models.ForecastSummary{PredictionDate: "20240112", Predictions: map[string]float64{"AAPL": 2}}, nil
}

func TestCachedSummary_MemoizesUntilUpdate(t *testing.T) {
	next := &countingBuilder{}
	s := NewCachedSummary(next, time.Hour)
	ctx := context.Background()

	first, err := s.Build(ctx)
	require.NoError(t, err)
	second, err := s.Build(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, next.calls)

	s.Notify(models.UpdateOutcome{Instrument: "AAPL", Status: models.StatusNoop})
	_, _ = s.Build(ctx)
	assert.Equal(t, 1, next.calls, "noop keeps the cached summary")

	s.Notify(models.UpdateOutcome{Instrument: "AAPL", Status: models.StatusUpdated})
	_, _ = s.Build(ctx)
	assert.Equal(t, 2, next.calls)
}

func TestCachedSummary_ErrorsNotCached(t *testing.T) {
	next := &countingBuilder{err: errors.New("boom")}
	s := NewCachedSummary(next, time.Hour)

	_, err := s.Build(context.Background())
	require.Error(t, err)
	_, err = s.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[int](time.Minute)
	c.now = func() time.Time { return clock }

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}
