package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domsvc "FinCast/internal/domain/service"
)

func writeScraped(t *testing.T, root, folder, ticker, content string) {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ticker+"_data.csv"), []byte(content), 0o644))
}

func TestFileSeriesSourceLoad(t *testing.T) {
	root := t.TempDir()
	writeScraped(t, root, "AAPL_20230101_20230301", "AAPL", "Date,Weekly_Close\n2023-01-06,1\n")
	writeScraped(t, root, "AAPL_20230101_20240101", "AAPL",
		"Date,Open,Weekly_Close\n"+
			"2023-01-13,0,11\n"+
			"2023-01-06,0,10\n"+
			"2023-01-20,0,\n"+
			"2023-01-27,0,13\n"+
			"2023-01-13,0,12\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-folder"), 0o755))

	src := NewFileSeriesSource(root, nil)
	s, err := src.Load(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Instrument)
	assert.Equal(t, []float64{10, 12, 13}, s.Values())
	assert.True(t, s.Points[0].Date.Equal(time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)))

	folder, err := src.Folder("AAPL")
	require.NoError(t, err)
	assert.True(t, folder.End.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFileSeriesSourceInstruments(t *testing.T) {
	root := t.TempDir()
	writeScraped(t, root, "MSFT_20230101_20240101", "MSFT", "Date,Weekly_Close\n")
	writeScraped(t, root, "AAPL_20230101_20240101", "AAPL", "Date,Weekly_Close\n")
	writeScraped(t, root, "AAPL_20230101_20240201", "AAPL", "Date,Weekly_Close\n")

	got, err := NewFileSeriesSource(root, nil).Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestFileSeriesSourceErrors(t *testing.T) {
	root := t.TempDir()
	writeScraped(t, root, "TSLA_20230101_20240101", "TSLA", "Date,Close\n2023-01-06,1\n")
	src := NewFileSeriesSource(root, nil)

	_, err := src.Load(context.Background(), "TSLA")
	assert.ErrorIs(t, err, domsvc.ErrMissingColumn)
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)

	writeScraped(t, root, "AMD_20230101_20240101", "AMD", "Day,Weekly_Close\n2023-01-06,1\n")
	_, err = src.Load(context.Background(), "AMD")
	assert.ErrorIs(t, err, domsvc.ErrMissingColumn)
	assert.ErrorIs(t, err, domsvc.ErrInvalidInput)
	assert.Contains(t, err.Error(), `"Date"`)

	var dsErr *domsvc.DataSourceError
	_, err = src.Load(context.Background(), "NVDA")
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, "NVDA", dsErr.Instrument)
	assert.ErrorIs(t, err, domsvc.ErrNotFound)
}
