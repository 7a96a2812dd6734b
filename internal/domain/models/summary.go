package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// ForecastSummary is the next-period forecast across instruments.
type ForecastSummary struct {
	PredictionDate string                      `json:"prediction_date"`
	GeneratedAt    time.Time                   `json:"generated_at"`
	Predictions    map[string]float64          `json:"predictions"`
	Models         map[string]InstrumentDetail `json:"models,omitempty"`
}

// InstrumentDetail carries the per-model forward cells behind one summary value.
type InstrumentDetail struct {
	LastConfirmed string                `json:"last_confirmed"`
	ForwardDate   string                `json:"forward_date"`
	Models        map[string]null.Float `json:"models"`
}

// UpdateOutcome reports the result of updating one instrument.
type UpdateOutcome struct {
	RunID        string    `json:"run_id"`
	Instrument   string    `json:"instrument"`
	Status       string    `json:"status"`
	RowsAdded    int       `json:"rows_added"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Update statuses.
const (
	StatusUpdated = "updated"
	StatusNoop    = "noop"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)
