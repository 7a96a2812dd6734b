package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FinCast/internal/domain/models"
)

func TestValidateSeries(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	ok := models.Series{Points: []models.Observation{{Date: d, Value: 1}, {Date: d.AddDate(0, 0, 7), Value: 2}}}
	assert.NoError(t, ValidateSeries(ok))

	tests := []struct {
		name   string
		points []models.Observation
	}{
		{"empty", nil},
		{"duplicate date", []models.Observation{{Date: d, Value: 1}, {Date: d, Value: 2}}},
		{"unsorted", []models.Observation{{Date: d.AddDate(0, 0, 7), Value: 1}, {Date: d, Value: 2}}},
		{"nan", []models.Observation{{Date: d, Value: math.NaN()}}},
		{"inf", []models.Observation{{Date: d, Value: math.Inf(1)}}},
		{"zero date", []models.Observation{{Value: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeries(models.Series{Points: tt.points})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	err := &ModelTrainingError{Model: "EnsembleAuto", Err: ErrNotTrained}
	assert.ErrorIs(t, err, ErrNotTrained)

	var dse *DataSourceError
	wrapped := error(&DataSourceError{Instrument: "AAPL", Err: ErrInvalidInput})
	assert.ErrorAs(t, wrapped, &dse)
	assert.Equal(t, "AAPL", dse.Instrument)
}
