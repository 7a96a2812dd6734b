package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
)

func testParamStore(t *testing.T, store domrepo.ParamStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	p := models.ARIMAParams{Order: [3]int{1, 1, 0}, SeasonalOrder: [4]int{0, 1, 1, 52}}
	require.NoError(t, store.Put(ctx, "AAPL", p))

	got, ok, err := store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p, got)

	require.NoError(t, store.Delete(ctx, "AAPL"))
	_, ok, err = store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "AAPL"))
}

func TestFileParamStore(t *testing.T) {
	testParamStore(t, NewFileParamStore(t.TempDir(), nil))
}

func TestFileParamStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewFileParamStore(dir, nil)
	p := models.ARIMAParams{Order: [3]int{2, 0, 1}, SeasonalOrder: [4]int{1, 0, 0, 52}}
	require.NoError(t, store.Put(context.Background(), "msft", p))

	b, err := os.ReadFile(filepath.Join(dir, "MSFT_params.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"order":[2,0,1],"seasonal_order":[1,0,0,52]}`, string(b))
}

func TestFileParamStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_params.json"), []byte("{"), 0o644))

	_, _, err := NewFileParamStore(dir, nil).Get(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestCacheParamStore(t *testing.T) {
	testParamStore(t, NewCacheParamStore(cache.NewMemoryCache()))
}
