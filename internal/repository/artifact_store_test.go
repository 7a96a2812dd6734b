package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

func sampleArtifact() *models.Artifact {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	a := &models.Artifact{Instrument: "AAPL"}
	for i := 0; i < 4; i++ {
		row := models.PredictionRow{
			Date:   start.AddDate(0, 0, 7*i),
			Ticker: "AAPL",
			Predictions: map[string]null.Float{
				models.ModelSeasonalARIMA: null.FloatFrom(100.125 + float64(i)),
				models.ModelEnsembleAuto:  null.FloatFrom(101.0 / 3.0),
				models.ModelPretrainedSeq: {},
			},
		}
		if i < 3 {
			row.Actual = null.FloatFrom(99.5 + float64(i))
		}
		a.Rows = append(a.Rows, row)
	}
	return a
}

func TestCSVArtifactStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCSVArtifactStore(t.TempDir(), nil)
	created := time.Date(2024, 2, 1, 9, 30, 15, 0, time.UTC)

	path, err := store.Save(ctx, sampleArtifact(), created)
	require.NoError(t, err)
	assert.Equal(t, "model_predictions_20240201_093015_AAPL_20240105_20240126.csv", filepath.Base(path))

	got, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Instrument)
	assert.Equal(t, CanonicalHeader(), got.Header)
	require.Len(t, got.Rows, 4)

	want := sampleArtifact()
	for i, row := range got.Rows {
		assert.True(t, row.Date.Equal(want.Rows[i].Date))
		assert.Equal(t, want.Rows[i].Actual.Valid, row.Actual.Valid)
		assert.InDelta(t, want.Rows[i].Actual.Float64, row.Actual.Float64, 1e-9)
		for _, m := range models.ModelNames {
			w, g := want.Rows[i].Prediction(m), row.Prediction(m)
			assert.Equal(t, w.Valid, g.Valid, m)
			assert.InDelta(t, w.Float64, g.Float64, 1e-9, m)
		}
	}
	assert.True(t, got.Rows[3].IsForward())
}

func TestCSVArtifactStoreKeepsRawRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "model_predictions_20240101_000000_MSFT_20240105_20240112.csv")
	content := "Date,ticker,SeasonalARIMA_pred,EnsembleAuto_pred,PretrainedSeq_pred,SeasonalARIMA_error,actual\n" +
		"2024-01-05,MSFT,1.10000,2.2,nan,0.5,1.0\n" +
		"2024-01-12,MSFT,,2.3,NaN,0.1,1.5\n" +
		"2024-01-19,MSFT,1.3,2.4,3.1,,\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))

	store := NewCSVArtifactStore(dir, nil)
	a, err := store.Load(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", a.Instrument)
	assert.False(t, a.Rows[0].Prediction(models.ModelPretrainedSeq).Valid)
	assert.False(t, a.Rows[1].Prediction(models.ModelSeasonalARIMA).Valid)
	assert.Equal(t, 1, a.CutoffIndex())

	out, err := store.Save(ctx, a, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,ticker,SeasonalARIMA_pred,EnsembleAuto_pred,PretrainedSeq_pred,actual", lines[0])
	assert.Equal(t, "2024-01-05,MSFT,1.10000,2.2,nan,1.0", lines[1])
	assert.Equal(t, "2024-01-12,MSFT,,2.3,NaN,1.5", lines[2])
}

func TestCSVArtifactStoreMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_predictions_20240101_000000_MSFT_20240105_20240112.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,ticker,SeasonalARIMA_pred\n2024-01-05,MSFT,1\n"), 0o644))

	_, err := NewCSVArtifactStore(dir, nil).Load(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domsvc.ErrMissingColumn)
}

func TestCSVArtifactStoreListAndLatest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewCSVArtifactStore(dir, nil)

	paths, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)

	older, err := store.Save(ctx, sampleArtifact(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	newer, err := store.Save(ctx, sampleArtifact(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	paths, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{older, newer}, paths)

	latest, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, newer, latest)

	_, err = store.Latest(ctx, "TSLA")
	assert.ErrorIs(t, err, domsvc.ErrNotFound)

	require.NoError(t, store.Remove(ctx, older))
	paths, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{newer}, paths)
}

func TestCSVArtifactStoreRejectsEmpty(t *testing.T) {
	store := NewCSVArtifactStore(t.TempDir(), nil)
	_, err := store.Save(context.Background(), &models.Artifact{Instrument: "AAPL"}, time.Now())
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)
}
