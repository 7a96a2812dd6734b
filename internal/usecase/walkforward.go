package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v5"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// RollingWindowTrainer runs the expanding-window walk-forward across its models. It owns the
// models and is not safe for concurrent use.
type RollingWindowTrainer struct {
	models   []domsvc.Forecaster
	metrics  domrepo.Metrics
	log      *logger.Logger
	fallback map[string]int
}

type TrainerOption func(*RollingWindowTrainer)

func WithTrainerMetrics(m domrepo.Metrics) TrainerOption {
	return func(t *RollingWindowTrainer) {
		if m != nil {
			t.metrics = m
		}
	}
}

func WithTrainerLogger(l *logger.Logger) TrainerOption {
	return func(t *RollingWindowTrainer) {
		if l != nil {
			t.log = l
		}
	}
}

// WithTrailingMeanFallback substitutes the mean of the last window values when the named
// model fails on a row.
func WithTrailingMeanFallback(model string, window int) TrainerOption {
	return func(t *RollingWindowTrainer) {
		t.fallback[model] = window
	}
}

func NewRollingWindowTrainer(fs []domsvc.Forecaster, opts ...TrainerOption) *RollingWindowTrainer {
	t := &RollingWindowTrainer{
		models:   fs,
		metrics:  nopMetrics{},
		log:      logger.Nop(),
		fallback: make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ModelNames returns the model keys in column order.
func (t *RollingWindowTrainer) ModelNames() []string {
	names := make([]string, len(t.models))
	for i, m := range t.models {
		names[i] = m.Name()
	}
	return names
}

// Run predicts every row of test with models trained on all rows before it, then appends a
// forward row dated one week after the last observation. It returns len(test)+1 rows.
func (t *RollingWindowTrainer) Run(ctx context.Context, instrument string, train, test models.Series) ([]models.PredictionRow, error) {
	if err := domsvc.ValidateSeries(train); err != nil {
		return nil, fmt.Errorf("training window: %w", err)
	}
	if test.Len() > 0 {
		if err := domsvc.ValidateSeries(test); err != nil {
			return nil, fmt.Errorf("test rows: %w", err)
		}
		last, _ := train.Last()
		if !test.Points[0].Date.After(last.Date) {
			return nil, fmt.Errorf("%w: test rows start at %s, not after training end %s",
				domsvc.ErrInvalidInput, test.Points[0].Date.Format(models.DateLayout), last.Date.Format(models.DateLayout))
		}
	}

	for _, m := range t.models {
		if r, ok := m.(domsvc.RunResetter); ok {
			r.ResetRun()
		}
	}

	current := train
	rows := make([]models.PredictionRow, 0, test.Len()+1)

	for i, obs := range test.Points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := t.predictRow(ctx, instrument, current, obs.Date)
		if err != nil {
			return nil, err
		}
		row.Actual = null.FloatFrom(obs.Value)
		rows = append(rows, row)
		t.metrics.RecordWalkForwardStep(instrument)
		t.log.Debug("walk-forward step",
			logger.String("ticker", instrument),
			logger.Int("step", i+1),
			logger.Int("of", test.Len()),
			logger.Int("window", current.Len()))

		current = current.Append(obs)
	}

	last, _ := current.Last()
	forward, err := t.predictRow(ctx, instrument, current, util.NextWeek(last.Date))
	if err != nil {
		return nil, err
	}
	rows = append(rows, forward)
	return rows, nil
}

func (t *RollingWindowTrainer) predictRow(ctx context.Context, instrument string, window models.Series, date time.Time) (models.PredictionRow, error) {
	row := models.PredictionRow{
		Date:        date,
		Ticker:      instrument,
		Predictions: make(map[string]null.Float, len(t.models)),
	}
	for _, m := range t.models {
		outcome := t.runModel(ctx, instrument, m, window)
		if errors.Is(outcome.Err, domsvc.ErrInvalidInput) {
			return row, outcome.Err
		}
		row.Predictions[m.Name()] = outcome.Cell()
	}
	return row, nil
}

// runModel trains and predicts one step, turning failures into a typed outcome.
func (t *RollingWindowTrainer) runModel(ctx context.Context, instrument string, m domsvc.Forecaster, window models.Series) models.ModelOutcome {
	start := time.Now()
	outcome := models.ModelOutcome{Model: m.Name()}

	err := m.Train(ctx, domsvc.TrainRequest{Instrument: instrument, Series: window})
	if err == nil {
		var preds []float64
		preds, err = m.Predict(1)
		if err == nil {
			if len(preds) == 0 || !features.AllFinite(preds[:1]) {
				err = errors.New("non-finite prediction")
			} else {
				outcome.Value = preds[0]
			}
		}
	}
	outcome.Elapsed = time.Since(start)
	t.metrics.RecordModelLatency(outcome.Model, outcome.Elapsed.Seconds())

	if err == nil {
		t.metrics.RecordModelFit(outcome.Model, "ok")
		return outcome
	}
	if errors.Is(err, domsvc.ErrInvalidInput) {
		outcome.Err = err
		return outcome
	}

	if n, ok := t.fallback[outcome.Model]; ok {
		if mean, ok := features.TrailingMean(window.Values(), n); ok {
			t.log.Warn("model failed, using trailing mean",
				logger.String("model", outcome.Model),
				logger.String("ticker", instrument),
				logger.Int("window", window.Len()),
				logger.Error(err))
			t.metrics.RecordModelFit(outcome.Model, "fallback")
			outcome.Value, outcome.Fallback = mean, true
			return outcome
		}
	}

	outcome.Err = &domsvc.ModelTrainingError{Model: outcome.Model, Err: err}
	t.metrics.RecordModelFit(outcome.Model, "failed")
	t.log.Error("model failed",
		logger.String("model", outcome.Model),
		logger.String("ticker", instrument),
		logger.Int("window", window.Len()),
		logger.Error(err))
	return outcome
}

type nopMetrics struct{}

func (nopMetrics) RecordModelFit(string, string)      {}
func (nopMetrics) RecordModelLatency(string, float64) {}
func (nopMetrics) RecordWalkForwardStep(string)       {}
func (nopMetrics) RecordUpdate(string, string)        {}
func (nopMetrics) RecordForecast(string, float64)     {}
func (nopMetrics) RecordError(string)                 {}
