package cache

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// SummaryBuilder produces the forward-forecast summary.
type SummaryBuilder interface {
	Build(ctx context.Context) (*models.ForecastSummary, error)
}

const summaryKey = "summary"

// CachedSummary memoizes built summaries and drops them once an update writes
// a new artifact.
type CachedSummary struct {
	next  SummaryBuilder
	cache *TTLCache[*models.ForecastSummary]
}

func NewCachedSummary(next SummaryBuilder, ttl time.Duration) *CachedSummary {
	return &CachedSummary{next: next, cache: NewTTLCache[*models.ForecastSummary](ttl)}
}

func (s *CachedSummary) Build(ctx context.Context) (*models.ForecastSummary, error) {
	if v, ok := s.cache.Get(summaryKey); ok {
		return v, nil
	}
	v, err := s.next.Build(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(summaryKey, v)
	return v, nil
}

// Notify implements the update notifier hook.
func (s *CachedSummary) Notify(o models.UpdateOutcome) {
	if o.Status == models.StatusUpdated {
		s.cache.Purge()
	}
}
