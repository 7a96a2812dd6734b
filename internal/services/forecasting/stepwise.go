package forecasting

import (
	"context"
	"errors"
	"fmt"
	"math"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
)

// OrderSelector picks SARIMA orders for a series.
type OrderSelector interface {
	Select(ctx context.Context, y []float64) (models.ARIMAParams, error)
}

// SearchConfig bounds the stepwise order search.
type SearchConfig struct {
	StartP, StartQ   int
	MaxP, MaxQ       int
	StartSP, StartSQ int
	MaxSP, MaxSQ     int
	MaxD             int
	SeasonalD        int
	Period           int
	MaxModels        int
}

// DefaultSearchConfig is the weekly-seasonality search used for all instruments.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		StartP: 1, StartQ: 1, MaxP: 3, MaxQ: 3,
		StartSP: 0, StartSQ: 1, MaxSP: 2, MaxSQ: 2,
		MaxD: 2, SeasonalD: 1, Period: 52,
		MaxModels: 60,
	}
}

// StepwiseSelector runs a neighbourhood search over (p,q,P,Q) by AIC. d is chosen by repeated
// ADF tests on the seasonally differenced series; candidates that fail to fit are skipped.
type StepwiseSelector struct {
	cfg SearchConfig
	log *logger.Logger
}

func NewStepwiseSelector(cfg SearchConfig, log *logger.Logger) *StepwiseSelector {
	if log == nil {
		log = logger.Nop()
	}
	return &StepwiseSelector{cfg: cfg, log: log}
}

type orderKey struct{ p, q, sp, sq int }

func (s *StepwiseSelector) Select(ctx context.Context, y []float64) (models.ARIMAParams, error) {
	cfg := s.cfg
	seasonal := features.DifferenceN(y, cfg.Period, cfg.SeasonalD)
	if len(seasonal) < 3 {
		return models.ARIMAParams{}, fmt.Errorf("order search on %d points: %w", len(y), errSeriesTooShort)
	}
	d := ndiffs(seasonal, cfg.MaxD)

	tried := make(map[orderKey]float64)
	var best *arimaFit
	bestAIC := math.Inf(1)

	try := func(k orderKey) bool {
		if k.p < 0 || k.q < 0 || k.sp < 0 || k.sq < 0 ||
			k.p > cfg.MaxP || k.q > cfg.MaxQ || k.sp > cfg.MaxSP || k.sq > cfg.MaxSQ {
			return false
		}
		if _, seen := tried[k]; seen || len(tried) >= cfg.MaxModels {
			return false
		}
		spec := arimaSpec{p: k.p, d: d, q: k.q, sp: k.sp, sd: cfg.SeasonalD, sq: k.sq, m: cfg.Period}
		spec.intercept = spec.d+spec.sd < 2

		fit, err := fitARIMA(y, spec)
		if err != nil {
			tried[k] = math.Inf(1)
			s.log.Debug("arima candidate skipped", logger.String("order", spec.String()), logger.Error(err))
			return false
		}
		tried[k] = fit.aic
		s.log.Debug("arima candidate", logger.String("order", spec.String()), logger.Float("aic", fit.aic))
		if fit.aic < bestAIC {
			best, bestAIC = fit, fit.aic
			return true
		}
		return false
	}

	for _, k := range []orderKey{
		{cfg.StartP, cfg.StartQ, cfg.StartSP, cfg.StartSQ},
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
	} {
		try(k)
	}

	for best != nil {
		if err := ctx.Err(); err != nil {
			return models.ARIMAParams{}, err
		}
		c := orderKey{best.spec.p, best.spec.q, best.spec.sp, best.spec.sq}
		improved := false
		for _, k := range neighbours(c) {
			if try(k) {
				improved = true
				break
			}
		}
		if !improved || len(tried) >= cfg.MaxModels {
			break
		}
	}

	if best == nil {
		return models.ARIMAParams{}, errors.New("order search: no candidate model could be fit")
	}
	return best.spec.params(), nil
}

func neighbours(c orderKey) []orderKey {
	return []orderKey{
		{c.p, c.q, c.sp - 1, c.sq},
		{c.p, c.q, c.sp + 1, c.sq},
		{c.p, c.q, c.sp, c.sq - 1},
		{c.p, c.q, c.sp, c.sq + 1},
		{c.p, c.q, c.sp - 1, c.sq - 1},
		{c.p, c.q, c.sp + 1, c.sq + 1},
		{c.p - 1, c.q, c.sp, c.sq},
		{c.p + 1, c.q, c.sp, c.sq},
		{c.p, c.q - 1, c.sp, c.sq},
		{c.p, c.q + 1, c.sp, c.sq},
		{c.p - 1, c.q - 1, c.sp, c.sq},
		{c.p + 1, c.q + 1, c.sp, c.sq},
		{c.p - 1, c.q + 1, c.sp, c.sq},
		{c.p + 1, c.q - 1, c.sp, c.sq},
	}
}
