package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// SeriesSource yields the full weekly history of an instrument.
type SeriesSource interface {
	Load(ctx context.Context, instrument string) (models.Series, error)
	Instruments(ctx context.Context) ([]string, error)
}

// ParamStore is a keyed store of ARIMA order-search results.
type ParamStore interface {
	Get(ctx context.Context, instrument string) (models.ARIMAParams, bool, error)
	Put(ctx context.Context, instrument string, p models.ARIMAParams) error
	Delete(ctx context.Context, instrument string) error
}

// ArtifactStore persists walk-forward result tables.
type ArtifactStore interface {
	Load(ctx context.Context, path string) (*models.Artifact, error)
	// Save writes the artifact under a new versioned name and returns its path.
	Save(ctx context.Context, a *models.Artifact, createdAt time.Time) (string, error)
	Remove(ctx context.Context, path string) error
	// List returns artifact paths sorted by name.
	List(ctx context.Context) ([]string, error)
	// Latest returns the newest artifact path for an instrument.
	Latest(ctx context.Context, instrument string) (string, error)
}

// SummaryPublisher delivers the forward-forecast summary.
type SummaryPublisher interface {
	Publish(ctx context.Context, s *models.ForecastSummary) error
}

// RunRecorder keeps the history of update runs.
type RunRecorder interface {
	Record(ctx context.Context, o models.UpdateOutcome) error
	Recent(ctx context.Context, limit int) ([]models.UpdateOutcome, error)
	Close() error
}

// UpdateNotifier fans update outcomes out to live listeners.
type UpdateNotifier interface {
	Notify(o models.UpdateOutcome)
}

// Locker guards an instrument against concurrent updates.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordModelFit(model, result string)
	RecordModelLatency(model string, seconds float64)
	RecordWalkForwardStep(instrument string)
	RecordUpdate(instrument, status string)
	RecordForecast(instrument string, value float64)
	RecordError(kind string)
}
