package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v5"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// SummaryBuilder collects the forward row of each instrument's current artifact into one
// next-period forecast.
type SummaryBuilder struct {
	artifacts  domrepo.ArtifactStore
	publishers []domrepo.SummaryPublisher
	log        *logger.Logger
	now        func() time.Time
}

func NewSummaryBuilder(artifacts domrepo.ArtifactStore, log *logger.Logger, publishers ...domrepo.SummaryPublisher) *SummaryBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &SummaryBuilder{artifacts: artifacts, publishers: publishers, log: log, now: time.Now}
}

// Build reads the newest artifact of every instrument. Instruments without a forward row or
// without any model prediction on it are left out.
func (b *SummaryBuilder) Build(ctx context.Context) (*models.ForecastSummary, error) {
	paths, err := b.artifacts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	summary := &models.ForecastSummary{
		GeneratedAt: b.now().UTC(),
		Predictions: make(map[string]float64),
		Models:      make(map[string]models.InstrumentDetail),
	}

	var latestConfirmed time.Time
	for ticker, path := range newestPerInstrument(paths) {
		a, err := b.artifacts.Load(ctx, path)
		if err != nil {
			b.log.Warn("skipping unreadable artifact", logger.String("path", path), logger.Error(err))
			continue
		}
		fwd, ok := a.ForwardRow()
		if !ok {
			continue
		}
		v, ok := meanPrediction(fwd)
		if !ok {
			b.log.Warn("forward row has no predictions", logger.String("ticker", ticker))
			continue
		}

		confirmed, _ := a.LastConfirmedDate()
		if confirmed.After(latestConfirmed) {
			latestConfirmed = confirmed
		}
		summary.Predictions[ticker] = v
		summary.Models[ticker] = models.InstrumentDetail{
			LastConfirmed: confirmed.Format(models.DateLayout),
			ForwardDate:   fwd.Date.Format(models.DateLayout),
			Models:        forwardCells(fwd),
		}
	}

	if latestConfirmed.IsZero() {
		latestConfirmed = b.now()
	}
	summary.PredictionDate = util.NextFriday(latestConfirmed).Format(models.ArtifactDate)
	return summary, nil
}

// Publish builds the summary and hands it to every publisher. All publishers are attempted.
func (b *SummaryBuilder) Publish(ctx context.Context) (*models.ForecastSummary, error) {
	summary, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, p := range b.publishers {
		if err := p.Publish(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	b.log.Info("forecast summary published",
		logger.String("prediction_date", summary.PredictionDate),
		logger.Int("instruments", len(summary.Predictions)))
	return summary, errors.Join(errs...)
}

// newestPerInstrument keeps the artifact with the latest creation stamp per ticker.
func newestPerInstrument(paths []string) map[string]string {
	type entry struct {
		path    string
		created time.Time
	}
	best := make(map[string]entry)
	for _, p := range paths {
		n, err := models.ParseArtifactName(p)
		if err != nil {
			continue
		}
		if cur, ok := best[n.Instrument]; !ok || n.CreatedAt.After(cur.created) {
			best[n.Instrument] = entry{path: p, created: n.CreatedAt}
		}
	}
	out := make(map[string]string, len(best))
	for k, v := range best {
		out[k] = v.path
	}
	return out
}

// meanPrediction averages the non-null model cells of a row.
func meanPrediction(row models.PredictionRow) (float64, bool) {
	keys := make([]string, 0, len(row.Predictions))
	for k := range row.Predictions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var vals []float64
	for _, k := range keys {
		if c := row.Predictions[k]; c.Valid {
			vals = append(vals, c.Float64)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}

func forwardCells(row models.PredictionRow) map[string]null.Float {
	out := make(map[string]null.Float, len(row.Predictions))
	for k, v := range row.Predictions {
		out[k] = v
	}
	return out
}
