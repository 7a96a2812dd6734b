package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/logger"
)

// SplitConfig decides where the walk-forward horizon starts.
type SplitConfig struct {
	// SplitIndex is a fixed number of training rows; 0 selects the fractional split.
	SplitIndex   int
	TestSize     float64
	MinTrainSize int
	// TestRunRows truncates the series before splitting when > 0.
	TestRunRows int
}

// SplitPoint returns the number of leading rows used as the initial training window.
func (c SplitConfig) SplitPoint(n int) (int, error) {
	if c.SplitIndex > 0 {
		if c.SplitIndex >= n {
			return 0, fmt.Errorf("%w: split index %d leaves no test rows in %d", domsvc.ErrInvalidInput, c.SplitIndex, n)
		}
		return c.SplitIndex, nil
	}

	if n < c.MinTrainSize+1 {
		return 0, fmt.Errorf("%w: %d rows, need at least %d", domsvc.ErrInvalidInput, n, c.MinTrainSize+1)
	}
	split := int(float64(n) * (1 - c.TestSize))
	if split < c.MinTrainSize {
		split = c.MinTrainSize
	}
	if split < 1 || split >= n {
		return 0, fmt.Errorf("%w: %d rows cannot hold %d training rows plus a test row",
			domsvc.ErrInvalidInput, n, split)
	}
	return split, nil
}

// InitialTraining builds the first artifact of an instrument from its full history.
type InitialTraining struct {
	source    domrepo.SeriesSource
	artifacts domrepo.ArtifactStore
	trainer   *RollingWindowTrainer
	split     SplitConfig
	log       *logger.Logger
	now       func() time.Time
}

func NewInitialTraining(source domrepo.SeriesSource, artifacts domrepo.ArtifactStore, trainer *RollingWindowTrainer, split SplitConfig, log *logger.Logger) *InitialTraining {
	if log == nil {
		log = logger.Nop()
	}
	return &InitialTraining{
		source:    source,
		artifacts: artifacts,
		trainer:   trainer,
		split:     split,
		log:       log,
		now:       time.Now,
	}
}

// Run trains the instrument and returns the saved artifact path.
func (u *InitialTraining) Run(ctx context.Context, instrument string) (string, error) {
	series, err := u.source.Load(ctx, instrument)
	if err != nil {
		return "", asDataSourceError(instrument, err)
	}
	if series.Instrument != "" {
		instrument = series.Instrument
	}
	if u.split.TestRunRows > 0 && series.Len() > u.split.TestRunRows {
		u.log.Info("test run: truncating series", logger.String("ticker", instrument), logger.Int("rows", u.split.TestRunRows))
		series = series.Head(u.split.TestRunRows)
	}

	split, err := u.split.SplitPoint(series.Len())
	if err != nil {
		return "", err
	}
	train, test := series.Head(split), series.Tail(split)

	u.log.Info("initial training started",
		logger.String("ticker", instrument),
		logger.Int("train_rows", train.Len()),
		logger.Int("test_rows", test.Len()))

	start := time.Now()
	rows, err := u.trainer.Run(ctx, instrument, train, test)
	if err != nil {
		return "", fmt.Errorf("walk-forward %s: %w", instrument, err)
	}

	path, err := u.artifacts.Save(ctx, &models.Artifact{Instrument: instrument, Rows: rows}, u.now())
	if err != nil {
		return "", fmt.Errorf("save artifact %s: %w", instrument, err)
	}

	u.log.Info("initial training finished",
		logger.String("ticker", instrument),
		logger.String("artifact", path),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed_ms", time.Since(start)))
	return path, nil
}

func asDataSourceError(instrument string, err error) error {
	var dsErr *domsvc.DataSourceError
	if errors.As(err, &dsErr) {
		return err
	}
	return &domsvc.DataSourceError{Instrument: instrument, Err: err}
}
