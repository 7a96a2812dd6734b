package forecasting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"
)

// EnsembleConfig bounds the automatic model search.
type EnsembleConfig struct {
	Generations    int
	Validations    int
	PopulationSize int
	Survivors      int
	SeasonalPeriod int
	Seed           uint64
}

func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Generations:    4,
		Validations:    2,
		PopulationSize: 12,
		Survivors:      4,
		SeasonalPeriod: 52,
		Seed:           2024,
	}
}

// EnsembleAuto searches a catalog of fast models and transformers with a small genetic loop,
// scoring each template by MAE over backward validation folds, and keeps the best one.
// Search failures leave the model untrained rather than failing Train.
type EnsembleAuto struct {
	cfg       EnsembleConfig
	models    []baseModel
	tfs       []transformer
	log       *logger.Logger
	history   []float64
	best      *template
	bestScore float64
}

func NewEnsembleAuto(cfg EnsembleConfig, log *logger.Logger) *EnsembleAuto {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Validations < 1 {
		cfg.Validations = 1
	}
	if cfg.Survivors < 1 {
		cfg.Survivors = 1
	}
	return &EnsembleAuto{
		cfg:    cfg,
		models: catalogModels(cfg.SeasonalPeriod),
		tfs:    catalogTransformers(),
		log:    log,
	}
}

func (e *EnsembleAuto) Name() string { return models.ModelEnsembleAuto }

func (e *EnsembleAuto) Train(ctx context.Context, req service.TrainRequest) error {
	if err := service.ValidateSeries(req.Series); err != nil {
		return err
	}
	e.best, e.history = nil, nil

	x := req.Series.Values()
	best, score, err := e.search(ctx, x)
	if err != nil {
		e.log.Warn("ensemble search failed, model left untrained",
			logger.String("ticker", req.Instrument), logger.Int("window", len(x)), logger.Error(err))
		return nil
	}

	e.best, e.bestScore, e.history = best, score, x
	e.log.Debug("ensemble template selected",
		logger.String("ticker", req.Instrument),
		logger.String("template", best.id()),
		logger.Float("mae", score))
	return nil
}

func (e *EnsembleAuto) Predict(steps int) ([]float64, error) {
	if err := service.ValidateSteps(steps); err != nil {
		return nil, err
	}
	if e.best == nil {
		return nil, service.ErrNotTrained
	}

	hist := append([]float64(nil), e.history...)
	out := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		v, err := e.best.forecastNext(hist)
		if err != nil {
			return nil, err
		}
		hist = append(hist, v)
		out = append(out, v)
	}
	return out, nil
}

func (e *EnsembleAuto) search(ctx context.Context, x []float64) (*template, float64, error) {
	if len(x) < e.cfg.Validations+3 {
		return nil, 0, fmt.Errorf("%d points: %w", len(x), errTooFewPoints)
	}

	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed^0x9e3779b97f4a7c15))
	scores := make(map[string]float64)
	pool := make(map[string]template)

	evaluate := func(t template) {
		if _, done := scores[t.id()]; done {
			return
		}
		pool[t.id()] = t
		scores[t.id()] = e.validate(t, x)
	}

	for _, t := range e.randomTemplates(rng, e.cfg.PopulationSize) {
		evaluate(t)
	}
	for g := 1; g < e.cfg.Generations; g++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		for _, parent := range e.ranked(pool, scores, e.cfg.Survivors) {
			evaluate(e.mutate(rng, parent))
			evaluate(e.mutate(rng, parent))
		}
		for _, t := range e.randomTemplates(rng, e.cfg.PopulationSize/3) {
			evaluate(t)
		}
	}

	top := e.ranked(pool, scores, 1)
	if len(top) == 0 {
		return nil, 0, errors.New("no template produced a valid forecast")
	}
	if _, err := top[0].forecastNext(x); err != nil {
		return nil, 0, fmt.Errorf("final fit %s: %w", top[0].id(), err)
	}
	return &top[0], scores[top[0].id()], nil
}

// validate scores t by MAE over the last Validations one-step-ahead folds.
func (e *EnsembleAuto) validate(t template, x []float64) float64 {
	n := len(x)
	actual := make([]float64, 0, e.cfg.Validations)
	predicted := make([]float64, 0, e.cfg.Validations)
	for v := e.cfg.Validations; v >= 1; v-- {
		p, err := t.forecastNext(x[:n-v])
		if err != nil {
			return math.Inf(1)
		}
		actual = append(actual, x[n-v])
		predicted = append(predicted, p)
	}
	return features.MAE(actual, predicted)
}

func (e *EnsembleAuto) randomTemplates(rng *rand.Rand, n int) []template {
	out := make([]template, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, template{
			model: e.models[rng.IntN(len(e.models))],
			tf:    e.tfs[rng.IntN(len(e.tfs))],
		})
	}
	return out
}

func (e *EnsembleAuto) mutate(rng *rand.Rand, t template) template {
	if rng.IntN(2) == 0 {
		t.tf = e.tfs[rng.IntN(len(e.tfs))]
	} else {
		t.model = e.models[rng.IntN(len(e.models))]
	}
	return t
}

// ranked returns up to n finite-scored templates, best first, ties broken by id.
func (e *EnsembleAuto) ranked(pool map[string]template, scores map[string]float64, n int) []template {
	ids := make([]string, 0, len(pool))
	for id := range pool {
		if s := scores[id]; !math.IsInf(s, 0) && !math.IsNaN(s) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] < scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	out := make([]template, len(ids))
	for i, id := range ids {
		out[i] = pool[id]
	}
	return out
}

var _ service.Forecaster = (*EnsembleAuto)(nil)
