package forecasting

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/pkg/logger"
)

// SeasonalARIMA fits a seasonal ARIMA per training call. Orders come from the param store
// when cached, otherwise from the selector, and are written back after a search.
type SeasonalARIMA struct {
	store    repository.ParamStore
	selector OrderSelector
	log      *logger.Logger

	fit *arimaFit
}

func NewSeasonalARIMA(store repository.ParamStore, selector OrderSelector, log *logger.Logger) *SeasonalARIMA {
	if log == nil {
		log = logger.Nop()
	}
	return &SeasonalARIMA{store: store, selector: selector, log: log}
}

func (m *SeasonalARIMA) Name() string { return models.ModelSeasonalARIMA }

func (m *SeasonalARIMA) Train(ctx context.Context, req service.TrainRequest) error {
	if err := service.ValidateSeries(req.Series); err != nil {
		return err
	}
	m.fit = nil
	y := req.Series.Values()

	if req.Instrument != "" && !req.ForceRetrain {
		p, ok, err := m.store.Get(ctx, req.Instrument)
		if err != nil {
			m.log.Warn("arima param lookup failed, searching",
				logger.String("ticker", req.Instrument), logger.Error(err))
		} else if ok {
			fit, err := fitARIMA(y, specFromParams(p))
			if err != nil {
				return fmt.Errorf("fit cached order %s: %w", p, err)
			}
			m.fit = fit
			return nil
		}
	}

	start := time.Now()
	p, err := m.selector.Select(ctx, y)
	if err != nil {
		return fmt.Errorf("order search: %w", err)
	}
	m.log.Info("arima order selected",
		logger.String("ticker", req.Instrument),
		logger.String("order", p.String()),
		logger.Duration("search_ms", time.Since(start)))

	if req.Instrument != "" {
		if err := m.store.Put(ctx, req.Instrument, p); err != nil {
			m.log.Warn("arima param save failed", logger.String("ticker", req.Instrument), logger.Error(err))
		}
	}

	fit, err := fitARIMA(y, specFromParams(p))
	if err != nil {
		return fmt.Errorf("fit order %s: %w", p, err)
	}
	m.fit = fit
	return nil
}

func (m *SeasonalARIMA) Predict(steps int) ([]float64, error) {
	if err := service.ValidateSteps(steps); err != nil {
		return nil, err
	}
	if m.fit == nil {
		return nil, service.ErrNotTrained
	}
	return m.fit.forecast(steps), nil
}

var _ service.Forecaster = (*SeasonalARIMA)(nil)
