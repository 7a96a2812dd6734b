package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/repository"
	"FinCast/pkg/util"
)

func TestSplitPoint(t *testing.T) {
	fixed := SplitConfig{SplitIndex: 105}
	got, err := fixed.SplitPoint(110)
	require.NoError(t, err)
	assert.Equal(t, 105, got)

	_, err = fixed.SplitPoint(105)
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)

	frac := SplitConfig{TestSize: 0.2, MinTrainSize: 52}
	cases := []struct {
		n    int
		want int
	}{
		{100, 80},
		{60, 52},
		{53, 52},
	}
	for _, c := range cases {
		got, err := frac.SplitPoint(c.n)
		require.NoError(t, err, c.n)
		assert.Equal(t, c.want, got, c.n)
	}

	_, err = frac.SplitPoint(52)
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)
}

func newTrainingFixture(t *testing.T, split SplitConfig) (*InitialTraining, *repository.CSVArtifactStore, *fakeSource) {
	t.Helper()
	store := repository.NewCSVArtifactStore(t.TempDir(), nil)
	src := newFakeSource()
	trainer := NewRollingWindowTrainer([]domsvc.Forecaster{&lastValueModel{name: "SeasonalARIMA"}})
	it := NewInitialTraining(src, store, trainer, split, nil)
	it.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return it, store, src
}

func TestInitialTrainingFixedSplit(t *testing.T) {
	it, store, src := newTrainingFixture(t, SplitConfig{SplitIndex: 105})
	series := weekly("AAPL", 110)
	src.set(series)

	path, err := it.Run(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "model_predictions_20240101_120000_AAPL_20240112_20240216.csv", filepath.Base(path))

	a, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, a.Rows, 6)
	assert.True(t, a.Rows[0].Date.Equal(series.Points[105].Date))

	last, _ := series.Last()
	fwd, ok := a.ForwardRow()
	require.True(t, ok)
	assert.True(t, fwd.Date.Equal(util.NextWeek(last.Date)))
	assert.False(t, fwd.Actual.Valid)
	assert.Equal(t, last.Value, fwd.Prediction("SeasonalARIMA").Float64)
}

func TestInitialTrainingTestRunTruncates(t *testing.T) {
	it, store, src := newTrainingFixture(t, SplitConfig{SplitIndex: 105, TestRunRows: 108})
	src.set(weekly("AAPL", 150))

	path, err := it.Run(context.Background(), "AAPL")
	require.NoError(t, err)

	a, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, a.Rows, 4)
}

func TestInitialTrainingMissingSeries(t *testing.T) {
	it, _, _ := newTrainingFixture(t, SplitConfig{SplitIndex: 105})

	_, err := it.Run(context.Background(), "AAPL")
	var dsErr *domsvc.DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, "AAPL", dsErr.Instrument)
}

func TestInitialTrainingTooShort(t *testing.T) {
	it, _, src := newTrainingFixture(t, SplitConfig{SplitIndex: 105})
	src.set(weekly("AAPL", 100))

	_, err := it.Run(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)
}
