package forecasting

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

var errSeriesTooShort = errors.New("series too short for model order")

// arimaSpec is a SARIMA(p,d,q)(P,D,Q)m structure.
type arimaSpec struct {
	p, d, q    int
	sp, sd, sq int
	m          int
	intercept  bool
}

func specFromParams(p models.ARIMAParams) arimaSpec {
	s := arimaSpec{
		p: p.Order[0], d: p.Order[1], q: p.Order[2],
		sp: p.SeasonalOrder[0], sd: p.SeasonalOrder[1], sq: p.SeasonalOrder[2],
		m: p.SeasonalOrder[3],
	}
	s.intercept = s.d+s.sd < 2
	return s
}

func (s arimaSpec) params() models.ARIMAParams {
	return models.ARIMAParams{
		Order:         [3]int{s.p, s.d, s.q},
		SeasonalOrder: [4]int{s.sp, s.sd, s.sq, s.m},
	}
}

func (s arimaSpec) nCoef() int {
	n := s.p + s.q + s.sp + s.sq
	if s.intercept {
		n++
	}
	return n
}

// offset is the number of leading observations consumed by differencing.
func (s arimaSpec) offset() int {
	return s.d + s.sd*s.m
}

func (s arimaSpec) String() string {
	return s.params().String()
}

// arimaFit is a SARIMA model estimated by conditional sum of squares.
type arimaFit struct {
	spec   arimaSpec
	mu     float64
	arPoly []float64
	maPoly []float64
	y      []float64
	resid  []float64
	sigma2 float64
	aic    float64
}

// fitARIMA estimates spec on y, minimizing the CSS of the differenced series with Nelder-Mead.
func fitARIMA(y []float64, spec arimaSpec) (*arimaFit, error) {
	if spec.m < 1 {
		spec.m = 1
	}
	w := features.DifferenceN(features.DifferenceN(y, spec.m, spec.sd), 1, spec.d)
	if len(w) == 0 {
		return nil, fmt.Errorf("%s: %w", spec, errSeriesTooShort)
	}

	arLag := spec.p + spec.sp*spec.m
	nEff := len(w) - arLag
	k := spec.nCoef()
	if nEff < 3 || nEff <= k+1 {
		return nil, fmt.Errorf("%s: %w", spec, errSeriesTooShort)
	}

	x0 := make([]float64, k)
	if spec.intercept {
		x0[k-1] = stat.Mean(w, nil)
	}

	objective := func(x []float64) float64 {
		ar, ma, mu := spec.unpack(x)
		_, css := cssResiduals(w, ar, ma, mu)
		if math.IsNaN(css) || math.IsInf(css, 0) {
			return math.MaxFloat64 / 4
		}
		return css
	}

	x := x0
	if k > 0 {
		result, err := optimize.Minimize(
			optimize.Problem{Func: objective},
			x0,
			&optimize.Settings{MajorIterations: 400 * k, FuncEvaluations: 800 * k},
			&optimize.NelderMead{},
		)
		if result == nil {
			return nil, fmt.Errorf("%s: minimize: %w", spec, err)
		}
		x = result.X
	}

	ar, ma, mu := spec.unpack(x)
	resid, css := cssResiduals(w, ar, ma, mu)
	if math.IsNaN(css) || math.IsInf(css, 0) {
		return nil, fmt.Errorf("%s: non-finite residuals", spec)
	}

	sigma2 := math.Max(css/float64(nEff), 1e-12)
	logLik := -0.5 * float64(nEff) * (math.Log(2*math.Pi*sigma2) + 1)

	return &arimaFit{
		spec:   spec,
		mu:     mu,
		arPoly: ar,
		maPoly: ma,
		y:      append([]float64(nil), y...),
		resid:  resid,
		sigma2: sigma2,
		aic:    -2*logLik + 2*float64(k+1),
	}, nil
}

// unpack maps the optimizer vector onto expanded AR and MA polynomials.
func (s arimaSpec) unpack(x []float64) (ar, ma []float64, mu float64) {
	i := 0
	take := func(n int) []float64 {
		v := x[i : i+n]
		i += n
		return v
	}
	phi, theta := take(s.p), take(s.q)
	sphi, stheta := take(s.sp), take(s.sq)
	if s.intercept {
		mu = x[i]
	}

	ar = polyMul(lagPoly(phi, 1, -1), lagPoly(sphi, s.m, -1))
	ma = polyMul(lagPoly(theta, 1, 1), lagPoly(stheta, s.m, 1))
	return ar, ma, mu
}

// cssResiduals runs the ARMA recursion on w with zero pre-sample innovations.
func cssResiduals(w, ar, ma []float64, mu float64) ([]float64, float64) {
	e := make([]float64, len(w))
	start := len(ar) - 1
	css := 0.0
	for t := start; t < len(w); t++ {
		v := 0.0
		for k, c := range ar {
			if c != 0 {
				v += c * (w[t-k] - mu)
			}
		}
		for j := 1; j < len(ma) && j <= t; j++ {
			if ma[j] != 0 {
				v -= ma[j] * e[t-j]
			}
		}
		e[t] = v
		css += v * v
	}
	return e, css
}

// forecast returns steps recursive forecasts on the original scale. Differencing is undone by
// running the recursion on the combined polynomial ar(B)(1-B)^d(1-B^m)^D.
func (f *arimaFit) forecast(steps int) []float64 {
	spec := f.spec
	full := f.arPoly
	for i := 0; i < spec.d; i++ {
		full = polyMul(full, []float64{1, -1})
	}
	for i := 0; i < spec.sd; i++ {
		seasonal := make([]float64, spec.m+1)
		seasonal[0], seasonal[spec.m] = 1, -1
		full = polyMul(full, seasonal)
	}

	c := 0.0
	if spec.intercept {
		for _, a := range f.arPoly {
			c += a
		}
		c *= f.mu
	}

	offset := spec.offset()
	hist := append([]float64(nil), f.y...)
	out := make([]float64, 0, steps)
	for h := 0; h < steps; h++ {
		t := len(hist)
		v := c
		for k := 1; k < len(full) && k <= t; k++ {
			v -= full[k] * hist[t-k]
		}
		for j := 1; j < len(f.maPoly); j++ {
			idx := t - j - offset
			if idx >= 0 && idx < len(f.resid) {
				v += f.maPoly[j] * f.resid[idx]
			}
		}
		hist = append(hist, v)
		out = append(out, v)
	}
	return out
}

// lagPoly builds 1 + sign*(c1 B^lag + c2 B^2lag + ...).
func lagPoly(coef []float64, lag int, sign float64) []float64 {
	p := make([]float64, len(coef)*lag+1)
	p[0] = 1
	for i, c := range coef {
		p[(i+1)*lag] = sign * c
	}
	return p
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}
