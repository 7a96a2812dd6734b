package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	"FinCast/internal/repository"
)

func artifactWithForward(ticker string, confirmed time.Time, cells map[string]null.Float) *models.Artifact {
	return &models.Artifact{Instrument: ticker, Rows: []models.PredictionRow{
		{
			Date:        confirmed,
			Ticker:      ticker,
			Predictions: map[string]null.Float{models.ModelSeasonalARIMA: null.FloatFrom(1)},
			Actual:      null.FloatFrom(1),
		},
		{
			Date:        confirmed.AddDate(0, 0, 7),
			Ticker:      ticker,
			Predictions: cells,
		},
	}}
}

type capturePublisher struct {
	got *models.ForecastSummary
	err error
}

func (p *capturePublisher) Publish(_ context.Context, s *models.ForecastSummary) error {
	p.got = s
	return p.err
}

func TestSummaryBuilderMeansForwardCells(t *testing.T) {
	ctx := context.Background()
	store := repository.NewCSVArtifactStore(t.TempDir(), nil)
	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err := store.Save(ctx, artifactWithForward("AAPL", friday.AddDate(0, 0, -7), map[string]null.Float{
		models.ModelSeasonalARIMA: null.FloatFrom(50),
	}), time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = store.Save(ctx, artifactWithForward("AAPL", friday, map[string]null.Float{
		models.ModelSeasonalARIMA: null.FloatFrom(1),
		models.ModelEnsembleAuto:  null.FloatFrom(3),
		models.ModelPretrainedSeq: {},
	}), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = store.Save(ctx, artifactWithForward("MSFT", friday.AddDate(0, 0, -14), map[string]null.Float{
		models.ModelSeasonalARIMA: {},
	}), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	pub := &capturePublisher{}
	b := NewSummaryBuilder(store, nil, pub)
	b.now = func() time.Time { return time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC) }

	s, err := b.Publish(ctx)
	require.NoError(t, err)
	assert.Same(t, s, pub.got)
	assert.Equal(t, "20240112", s.PredictionDate)
	assert.Equal(t, map[string]float64{"AAPL": 2}, s.Predictions)
	assert.Equal(t, "2024-01-05", s.Models["AAPL"].LastConfirmed)
	assert.Equal(t, "2024-01-12", s.Models["AAPL"].ForwardDate)
	assert.False(t, s.Models["AAPL"].Models[models.ModelPretrainedSeq].Valid)
}

func TestSummaryBuilderPublishErrorsJoined(t *testing.T) {
	store := repository.NewCSVArtifactStore(t.TempDir(), nil)
	first := &capturePublisher{err: errors.New("kafka down")}
	second := &capturePublisher{}

	s, err := NewSummaryBuilder(store, nil, first, second).Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka down")
	assert.Same(t, s, second.got)
	assert.Empty(t, s.Predictions)
}
