package forecasting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"FinCast/internal/services/features"
)

// adfCritical5 is the 5% critical value of the ADF test with a constant term.
const adfCritical5 = -2.86

// adfStatistic returns the t-statistic on the lagged level in
// dx_t = a + b*x_{t-1} + sum_i g_i*dx_{t-i} + e_t, with lag order trunc((n-1)^(1/3)).
func adfStatistic(x []float64) (float64, error) {
	n := len(x)
	k := int(math.Cbrt(float64(n - 1)))
	dx := features.Difference(x, 1)
	rows := len(dx) - k
	cols := k + 2
	if rows <= cols+1 {
		return 0, fmt.Errorf("adf: %d observations: %w", n, errSeriesTooShort)
	}

	X := mat.NewDense(rows, cols, nil)
	Y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + k
		Y.SetVec(r, dx[t])
		X.Set(r, 0, 1)
		X.Set(r, 1, x[t])
		for i := 1; i <= k; i++ {
			X.Set(r, 1+i, dx[t-i])
		}
	}

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return 0, fmt.Errorf("adf: singular design: %w", err)
	}

	var xty, beta, fitted, resid mat.VecDense
	xty.MulVec(X.T(), Y)
	beta.MulVec(&inv, &xty)
	fitted.MulVec(X, &beta)
	resid.SubVec(Y, &fitted)

	s2 := mat.Dot(&resid, &resid) / float64(rows-cols)
	se := math.Sqrt(s2 * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) {
		return 0, fmt.Errorf("adf: degenerate standard error")
	}
	return beta.AtVec(1) / se, nil
}

// ndiffs returns how many first differences x needs before the ADF test rejects a unit root.
func ndiffs(x []float64, maxD int) int {
	d := 0
	for d < maxD {
		stat, err := adfStatistic(x)
		if err != nil || stat < adfCritical5 {
			break
		}
		x = features.Difference(x, 1)
		d++
	}
	return d
}
