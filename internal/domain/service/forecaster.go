package service

import (
	"context"
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// TrainRequest carries the training window for one fit.
type TrainRequest struct {
	Instrument   string
	Series       models.Series
	ForceRetrain bool
}

// Forecaster is a one-step-ahead forecasting model. Train may be called repeatedly with a
// growing series; Predict is side-effect free.
type Forecaster interface {
	Name() string
	Train(ctx context.Context, req TrainRequest) error
	Predict(steps int) ([]float64, error)
}

// RunResetter is implemented by forecasters that clear per-run state before a walk-forward run.
type RunResetter interface {
	ResetRun()
}

// ValidateSeries rejects empty series, unsorted or duplicate dates and non-finite values.
func ValidateSeries(s models.Series) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	for i, p := range s.Points {
		if p.Date.IsZero() {
			return fmt.Errorf("%w: missing date at row %d", ErrInvalidInput, i)
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: non-finite value at %s", ErrInvalidInput, p.Date.Format(models.DateLayout))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at %s", ErrInvalidInput, p.Date.Format(models.DateLayout))
		}
	}
	return nil
}

// ValidateSteps rejects non-positive horizons.
func ValidateSteps(steps int) error {
	if steps < 1 {
		return fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidInput, steps)
	}
	return nil
}
