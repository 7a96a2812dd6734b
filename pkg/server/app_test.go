package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/repository"
	"FinCast/pkg/config"
)

func TestApp_InvalidateParams(t *testing.T) {
	params := repository.NewFileParamStore(t.TempDir(), nil)
	ctx := context.Background()
	require.NoError(t, params.Put(ctx, "AAPL", models.ARIMAParams{Order: [3]int{1, 1, 1}, SeasonalOrder: [4]int{0, 0, 0, 52}}))

	app := New(config.Default(), nil, Components{Params: params})
	require.NoError(t, app.InvalidateParams(ctx, "AAPL"))

	_, ok, err := params.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_TrainWithoutInstruments(t *testing.T) {
	src := repository.NewFileSeriesSource(t.TempDir(), nil)
	app := New(config.Default(), nil, Components{Source: src})

	paths, err := app.Train(context.Background(), nil)
	assert.Empty(t, paths)
	assert.ErrorIs(t, err, domsvc.ErrNotFound)
}
