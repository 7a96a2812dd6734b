package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// Model column keys, in artifact column order.
const (
	ModelSeasonalARIMA = "SeasonalARIMA"
	ModelEnsembleAuto  = "EnsembleAuto"
	ModelPretrainedSeq = "PretrainedSeq"
)

// ModelNames lists the model keys in artifact column order.
var ModelNames = []string{ModelSeasonalARIMA, ModelEnsembleAuto, ModelPretrainedSeq}

// Artifact column names.
const (
	ColumnDate       = "Date"
	ColumnTicker     = "ticker"
	ColumnActual     = "actual"
	PredictionSuffix = "_pred"
	ErrorSuffix      = "_error"
)

// PredictionColumn returns the artifact column holding a model's predictions.
func PredictionColumn(model string) string {
	return model + PredictionSuffix
}

// PredictionRow is one walk-forward step. A null prediction means the model failed for
// that row; a null Actual marks the forward row.
type PredictionRow struct {
	Date        time.Time
	Ticker      string
	Predictions map[string]null.Float
	Actual      null.Float

	// Raw holds the record as read from disk, written back verbatim when present.
	Raw []string
}

// Prediction returns the cell for model, null when absent.
func (r PredictionRow) Prediction(model string) null.Float {
	if r.Predictions == nil {
		return null.Float{}
	}
	return r.Predictions[model]
}

// IsForward reports whether the row has no realized value yet.
func (r PredictionRow) IsForward() bool {
	return !r.Actual.Valid
}

// ModelOutcome is the result of one train+predict call for one model on one row.
type ModelOutcome struct {
	Model    string
	Value    float64
	Err      error
	Fallback bool
	Elapsed  time.Duration
}

// Cell converts the outcome into an artifact cell.
func (o ModelOutcome) Cell() null.Float {
	if o.Err != nil {
		return null.Float{}
	}
	return null.FloatFrom(o.Value)
}
