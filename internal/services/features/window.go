package features

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrFlatSeries = errors.New("series has zero variance")

// LastN returns the trailing n values (all of x when shorter).
func LastN(x []float64, n int) []float64 {
	if n >= len(x) {
		return x
	}
	return x[len(x)-n:]
}

// TrailingMean is the arithmetic mean of the last n values; ok is false when fewer exist.
func TrailingMean(x []float64, n int) (float64, bool) {
	if n <= 0 || len(x) < n {
		return 0, false
	}
	return stat.Mean(LastN(x, n), nil), true
}

// ZScore standardizes x with its sample mean and standard deviation.
func ZScore(x []float64) (z []float64, mean, std float64, err error) {
	mean, std = stat.MeanStdDev(x, nil)
	if len(x) < 2 || std == 0 || math.IsNaN(std) {
		return nil, mean, std, ErrFlatSeries
	}
	z = make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - mean) / std
	}
	return z, mean, std, nil
}

// Difference applies (1 - B^lag) once. The result is len(x)-lag long.
func Difference(x []float64, lag int) []float64 {
	if lag <= 0 || len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := lag; i < len(x); i++ {
		out[i-lag] = x[i] - x[i-lag]
	}
	return out
}

// DifferenceN applies (1 - B^lag) d times.
func DifferenceN(x []float64, lag, d int) []float64 {
	out := x
	for i := 0; i < d; i++ {
		out = Difference(out, lag)
	}
	return out
}

// MAE is the mean absolute error between two equal-length slices.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return math.NaN()
	}
	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	for i := range diff {
		diff[i] = math.Abs(diff[i])
	}
	return stat.Mean(diff, nil)
}

// AllFinite reports whether every value is finite.
func AllFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
