package forecasting

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/services/features"
)

var errTooFewPoints = errors.New("too few points")

// baseModel produces a one-step forecast from a (transformed) series.
type baseModel interface {
	name() string
	forecast(z []float64) (float64, error)
}

type naiveModel struct{}

func (naiveModel) name() string { return "naive" }
func (naiveModel) forecast(z []float64) (float64, error) {
	if len(z) == 0 {
		return 0, errTooFewPoints
	}
	return z[len(z)-1], nil
}

type seasonalNaiveModel struct{ period int }

func (m seasonalNaiveModel) name() string { return fmt.Sprintf("seasonal_naive(%d)", m.period) }
func (m seasonalNaiveModel) forecast(z []float64) (float64, error) {
	if len(z) < m.period {
		return 0, errTooFewPoints
	}
	return z[len(z)-m.period], nil
}

type meanModel struct{}

func (meanModel) name() string { return "mean" }
func (meanModel) forecast(z []float64) (float64, error) {
	if len(z) == 0 {
		return 0, errTooFewPoints
	}
	return stat.Mean(z, nil), nil
}

type movingAverageModel struct{ window int }

func (m movingAverageModel) name() string { return fmt.Sprintf("moving_average(%d)", m.window) }
func (m movingAverageModel) forecast(z []float64) (float64, error) {
	v, ok := features.TrailingMean(z, m.window)
	if !ok {
		return 0, errTooFewPoints
	}
	return v, nil
}

type driftModel struct{}

func (driftModel) name() string { return "drift" }
func (driftModel) forecast(z []float64) (float64, error) {
	n := len(z)
	if n < 2 {
		return 0, errTooFewPoints
	}
	return z[n-1] + (z[n-1]-z[0])/float64(n-1), nil
}

type sesModel struct{ alpha float64 }

func (m sesModel) name() string { return fmt.Sprintf("ses(%.2f)", m.alpha) }
func (m sesModel) forecast(z []float64) (float64, error) {
	if len(z) == 0 {
		return 0, errTooFewPoints
	}
	level := z[0]
	for _, v := range z[1:] {
		level = m.alpha*v + (1-m.alpha)*level
	}
	return level, nil
}

type holtModel struct{ alpha, beta float64 }

func (m holtModel) name() string { return fmt.Sprintf("holt(%.2f,%.2f)", m.alpha, m.beta) }
func (m holtModel) forecast(z []float64) (float64, error) {
	if len(z) < 3 {
		return 0, errTooFewPoints
	}
	level, trend := z[0], z[1]-z[0]
	for _, v := range z[1:] {
		prev := level
		level = m.alpha*v + (1-m.alpha)*(level+trend)
		trend = m.beta*(level-prev) + (1-m.beta)*trend
	}
	return level + trend, nil
}

// arModel is an AR(k) with intercept fitted by ordinary least squares.
type arModel struct{ lags int }

func (m arModel) name() string { return fmt.Sprintf("ar(%d)", m.lags) }
func (m arModel) forecast(z []float64) (float64, error) {
	n, k := len(z), m.lags
	rows := n - k
	if rows < 2*(k+1) {
		return 0, errTooFewPoints
	}

	X := mat.NewDense(rows, k+1, nil)
	Y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + k
		Y.SetVec(r, z[t])
		X.Set(r, 0, 1)
		for i := 1; i <= k; i++ {
			X.Set(r, i, z[t-i])
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(X, Y); err != nil {
		return 0, fmt.Errorf("ar(%d) least squares: %w", k, err)
	}

	f := beta.AtVec(0)
	for i := 1; i <= k; i++ {
		f += beta.AtVec(i) * z[n-i]
	}
	return f, nil
}

// transformer maps a series into the space a base model works in and maps a one-step
// forecast back.
type transformer interface {
	name() string
	apply(x []float64) ([]float64, error)
	invert(x []float64, f float64) float64
}

type identityTransform struct{}

func (identityTransform) name() string                          { return "identity" }
func (identityTransform) apply(x []float64) ([]float64, error)  { return x, nil }
func (identityTransform) invert(_ []float64, f float64) float64 { return f }

type diffTransform struct{}

func (diffTransform) name() string { return "diff" }
func (diffTransform) apply(x []float64) ([]float64, error) {
	d := features.Difference(x, 1)
	if len(d) == 0 {
		return nil, errTooFewPoints
	}
	return d, nil
}
func (diffTransform) invert(x []float64, f float64) float64 { return x[len(x)-1] + f }

type zscoreTransform struct{}

func (zscoreTransform) name() string { return "zscore" }
func (zscoreTransform) apply(x []float64) ([]float64, error) {
	z, _, _, err := features.ZScore(x)
	return z, err
}
func (zscoreTransform) invert(x []float64, f float64) float64 {
	mean, std := stat.MeanStdDev(x, nil)
	return f*std + mean
}

type logTransform struct{}

func (logTransform) name() string { return "log" }
func (logTransform) apply(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, v := range x {
		if v <= 0 {
			return nil, errors.New("log transform needs positive values")
		}
		out[i] = math.Log(v)
	}
	return out, nil
}
func (logTransform) invert(_ []float64, f float64) float64 { return math.Exp(f) }

// template pairs a base model with a transformer.
type template struct {
	model baseModel
	tf    transformer
}

func (t template) id() string { return t.model.name() + "|" + t.tf.name() }

// forecastNext predicts the value following x.
func (t template) forecastNext(x []float64) (float64, error) {
	z, err := t.tf.apply(x)
	if err != nil {
		return 0, err
	}
	f, err := t.model.forecast(z)
	if err != nil {
		return 0, err
	}
	v := t.tf.invert(x, f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: non-finite forecast", t.id())
	}
	return v, nil
}

// catalogModels is the fast model list searched by the ensemble.
func catalogModels(period int) []baseModel {
	return []baseModel{
		naiveModel{},
		seasonalNaiveModel{period: period},
		meanModel{},
		movingAverageModel{window: 4},
		movingAverageModel{window: 8},
		movingAverageModel{window: 13},
		driftModel{},
		sesModel{alpha: 0.2},
		sesModel{alpha: 0.5},
		sesModel{alpha: 0.8},
		holtModel{alpha: 0.5, beta: 0.1},
		holtModel{alpha: 0.8, beta: 0.2},
		arModel{lags: 1},
		arModel{lags: 2},
		arModel{lags: 4},
	}
}

func catalogTransformers() []transformer {
	return []transformer{identityTransform{}, diffTransform{}, zscoreTransform{}, logTransform{}}
}
