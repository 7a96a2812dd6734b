package models

import (
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekly(n int) Series {
	start := time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)
	pts := make([]Observation, n)
	for i := range pts {
		pts[i] = Observation{Date: start.AddDate(0, 0, 7*i), Value: float64(100 + i)}
	}
	return Series{Instrument: "AAPL", Points: pts}
}

func TestSeriesSplitAt(t *testing.T) {
	s := weekly(10)
	upTo, after := s.SplitAt(s.Points[6].Date)

	assert.Equal(t, 7, upTo.Len())
	assert.Equal(t, 3, after.Len())
	assert.Equal(t, s.Points[7].Date, after.Points[0].Date)

	upTo, after = s.SplitAt(s.Points[9].Date)
	assert.Equal(t, 10, upTo.Len())
	assert.Equal(t, 0, after.Len())
}

func TestSeriesDateRange(t *testing.T) {
	s := weekly(4)
	first, last := s.DateRange()
	assert.Equal(t, s.Points[0].Date, first)
	assert.Equal(t, s.Points[3].Date, last)

	first, last = Series{}.DateRange()
	assert.True(t, first.IsZero())
	assert.True(t, last.IsZero())
}

func TestSeriesAppendDoesNotAlias(t *testing.T) {
	s := weekly(3)
	head := s.Head(2)
	grown := head.Append(Observation{Date: time.Now(), Value: 1})

	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, grown.Len())
	assert.Equal(t, float64(102), s.Points[2].Value)
}

func TestArtifactNameRoundTrip(t *testing.T) {
	n := ArtifactName{
		CreatedAt:  time.Date(2024, 6, 1, 13, 4, 5, 0, time.UTC),
		Instrument: "MSFT",
		Start:      time.Date(2022, 1, 7, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	name := n.String()
	assert.Equal(t, "model_predictions_20240601_130405_MSFT_20220107_20240531.csv", name)

	parsed, err := ParseArtifactName("/data/predictions/" + name)
	require.NoError(t, err)
	assert.Equal(t, n, parsed)
}

func TestDeriveTickerRejectsForeignNames(t *testing.T) {
	_, err := DeriveTicker("predictions.csv")
	assert.Error(t, err)

	_, err = DeriveTicker("model_predictions_20240601_130405_msft_20220107_20240531.csv")
	assert.Error(t, err)
}

func TestArtifactCutoff(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	a := &Artifact{Rows: []PredictionRow{
		{Date: day, Actual: null.FloatFrom(1)},
		{Date: day.AddDate(0, 0, 7), Actual: null.FloatFrom(2)},
		{Date: day.AddDate(0, 0, 14)},
	}}

	assert.Equal(t, 1, a.CutoffIndex())
	fwd, ok := a.ForwardRow()
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, 0, 14), fwd.Date)

	empty := &Artifact{Rows: []PredictionRow{{Date: day}}}
	assert.Equal(t, -1, empty.CutoffIndex())
}
