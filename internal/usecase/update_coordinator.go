package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/logger"
)

// UpdateCoordinator extends persisted artifacts with rows observed after their confirmed
// cutoff. Updates run one at a time through a shared trainer.
type UpdateCoordinator struct {
	artifacts domrepo.ArtifactStore
	source    domrepo.SeriesSource
	trainer   *RollingWindowTrainer
	locker    domrepo.Locker
	lockTTL   time.Duration
	recorder  domrepo.RunRecorder
	notifiers []domrepo.UpdateNotifier
	metrics   domrepo.Metrics
	log       *logger.Logger
	now       func() time.Time
	newRunID  func() string

	mu sync.Mutex
}

type CoordinatorOption func(*UpdateCoordinator)

// WithUpdateLock guards each instrument with a lock held for at most ttl.
func WithUpdateLock(l domrepo.Locker, ttl time.Duration) CoordinatorOption {
	return func(c *UpdateCoordinator) {
		c.locker, c.lockTTL = l, ttl
	}
}

func WithRunRecorder(r domrepo.RunRecorder) CoordinatorOption {
	return func(c *UpdateCoordinator) { c.recorder = r }
}

// WithUpdateNotifier adds a listener for finished update outcomes.
func WithUpdateNotifier(n domrepo.UpdateNotifier) CoordinatorOption {
	return func(c *UpdateCoordinator) {
		if n != nil {
			c.notifiers = append(c.notifiers, n)
		}
	}
}

func WithCoordinatorMetrics(m domrepo.Metrics) CoordinatorOption {
	return func(c *UpdateCoordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithCoordinatorLogger(l *logger.Logger) CoordinatorOption {
	return func(c *UpdateCoordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the time source used for artifact names and run timings.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *UpdateCoordinator) { c.now = now }
}

func NewUpdateCoordinator(artifacts domrepo.ArtifactStore, source domrepo.SeriesSource, trainer *RollingWindowTrainer, opts ...CoordinatorOption) *UpdateCoordinator {
	c := &UpdateCoordinator{
		artifacts: artifacts,
		source:    source,
		trainer:   trainer,
		lockTTL:   30 * time.Minute,
		metrics:   nopMetrics{},
		log:       logger.Nop(),
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateFile updates the artifact at path. ticker overrides the instrument derived from the
// file name. A result without new rows has status noop and writes nothing.
func (c *UpdateCoordinator) UpdateFile(ctx context.Context, path, ticker string) (models.UpdateOutcome, error) {
	outcome := models.UpdateOutcome{
		RunID:      c.newRunID(),
		Instrument: ticker,
		StartedAt:  c.now(),
	}

	err := c.updateFile(ctx, path, ticker, &outcome)
	outcome.FinishedAt = c.now()
	switch {
	case err == nil:
	case errors.Is(err, domsvc.ErrNoConfirmedData), errors.Is(err, domsvc.ErrUpdateInProgress):
		outcome.Status = models.StatusSkipped
		outcome.Error = err.Error()
	default:
		outcome.Status = models.StatusFailed
		outcome.Error = err.Error()
	}

	c.finish(ctx, outcome)
	return outcome, err
}

func (c *UpdateCoordinator) updateFile(ctx context.Context, path, ticker string, out *models.UpdateOutcome) error {
	artifact, err := c.artifacts.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	if ticker == "" {
		if ticker, err = models.DeriveTicker(path); err != nil {
			return fmt.Errorf("%w: %v", domsvc.ErrInvalidInput, err)
		}
		out.Instrument = ticker
	}

	cut := artifact.CutoffIndex()
	if cut < 0 {
		return fmt.Errorf("%s: %w", path, domsvc.ErrNoConfirmedData)
	}
	cutoff := artifact.Rows[cut].Date

	if c.locker != nil {
		key := "update:" + ticker
		ok, err := c.locker.TryLock(ctx, key, c.lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", ticker, err)
		}
		if !ok {
			return fmt.Errorf("%s: %w", ticker, domsvc.ErrUpdateInProgress)
		}
		defer func() {
			if err := c.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				c.log.Warn("unlock failed", logger.String("ticker", ticker), logger.Error(err))
			}
		}()
	}

	series, err := c.source.Load(ctx, ticker)
	if err != nil {
		return asDataSourceError(ticker, err)
	}

	train, fresh := series.SplitAt(cutoff)
	if fresh.Len() == 0 {
		out.Status = models.StatusNoop
		out.ArtifactPath = path
		c.log.Info("no new data",
			logger.String("ticker", ticker),
			logger.String("cutoff", cutoff.Format(models.DateLayout)))
		return nil
	}

	c.log.Info("updating artifact",
		logger.String("ticker", ticker),
		logger.String("cutoff", cutoff.Format(models.DateLayout)),
		logger.Int("new_rows", fresh.Len()))

	c.mu.Lock()
	rows, err := c.trainer.Run(ctx, ticker, train, fresh)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("walk-forward %s: %w", ticker, err)
	}

	merged := make([]models.PredictionRow, 0, cut+1+len(rows))
	merged = append(merged, artifact.Rows[:cut+1]...)
	merged = append(merged, rows...)

	updated := &models.Artifact{
		Instrument: ticker,
		Header:     artifact.Header,
		Rows:       merged,
	}
	newPath, err := c.artifacts.Save(ctx, updated, c.now())
	if err != nil {
		return fmt.Errorf("save %s: %w", ticker, err)
	}

	if newPath != path {
		if err := c.artifacts.Remove(ctx, path); err != nil {
			c.log.Warn("could not remove old artifact", logger.String("path", path), logger.Error(err))
		}
	}

	out.Status = models.StatusUpdated
	out.RowsAdded = len(rows)
	out.ArtifactPath = newPath

	if fwd, ok := updated.ForwardRow(); ok {
		if v, ok := meanPrediction(fwd); ok {
			c.metrics.RecordForecast(ticker, v)
		}
	}
	return nil
}

// UpdateInstrument updates the newest artifact of ticker.
func (c *UpdateCoordinator) UpdateInstrument(ctx context.Context, ticker string) (models.UpdateOutcome, error) {
	path, err := c.artifacts.Latest(ctx, ticker)
	if err != nil {
		outcome := models.UpdateOutcome{
			RunID:      c.newRunID(),
			Instrument: ticker,
			Status:     models.StatusFailed,
			Error:      err.Error(),
			StartedAt:  c.now(),
			FinishedAt: c.now(),
		}
		c.finish(ctx, outcome)
		return outcome, err
	}
	return c.UpdateFile(ctx, path, ticker)
}

// UpdateAll updates every artifact in name order. A failing instrument is logged and the
// batch moves on; only context cancellation stops it early.
func (c *UpdateCoordinator) UpdateAll(ctx context.Context) ([]models.UpdateOutcome, error) {
	paths, err := c.artifacts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	outcomes := make([]models.UpdateOutcome, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := c.UpdateFile(ctx, p, "")
		if err != nil {
			c.log.Error("update failed", logger.String("path", p), logger.Error(err))
		}
		outcomes = append(outcomes, outcome)
	}

	c.log.Info("batch update finished", logger.Int("artifacts", len(paths)), logger.Any("summary", countStatuses(outcomes)))
	return outcomes, nil
}

func (c *UpdateCoordinator) finish(ctx context.Context, o models.UpdateOutcome) {
	c.metrics.RecordUpdate(o.Instrument, o.Status)
	if o.Status == models.StatusFailed {
		c.metrics.RecordError("update")
	}
	if c.recorder != nil {
		if err := c.recorder.Record(context.WithoutCancel(ctx), o); err != nil {
			c.log.Warn("record run failed", logger.String("run_id", o.RunID), logger.Error(err))
		}
	}
	for _, n := range c.notifiers {
		n.Notify(o)
	}
}

func countStatuses(outcomes []models.UpdateOutcome) map[string]int {
	counts := make(map[string]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
