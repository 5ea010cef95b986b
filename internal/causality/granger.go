package causality

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LagResult is the Granger F-test outcome for one lag order.
type LagResult struct {
	Lag         int
	FStat       float64
	PValue      float64
	Significant bool
}

// DirectionResult collects the per-lag tests for one causal direction.
type DirectionResult struct {
	Cause  string
	Effect string
	Lags   []LagResult
}

// AnySignificant reports whether any tested lag rejected the null.
func (d DirectionResult) AnySignificant() bool {
	for _, l := range d.Lags {
		if l.Significant {
			return true
		}
	}
	return false
}

// GrangerTest runs the F-test "cause Granger-causes effect" for every lag
// from 1 to maxLag. The null hypothesis at each lag is that the cause's
// lagged values add no explanatory power over the effect's own lags.
func GrangerTest(cause, effect []float64, maxLag int, alpha float64) ([]LagResult, error) {
	if len(cause) != len(effect) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(cause), len(effect))
	}

	results := make([]LagResult, 0, maxLag)
	for lag := 1; lag <= maxLag; lag++ {
		f, p, err := grangerAtLag(cause, effect, lag)
		if err != nil {
			return nil, fmt.Errorf("lag %d: %w", lag, err)
		}
		results = append(results, LagResult{
			Lag:         lag,
			FStat:       f,
			PValue:      p,
			Significant: p < alpha,
		})
	}
	return results, nil
}

func grangerAtLag(cause, effect []float64, lag int) (fstat, pvalue float64, err error) {
	n := len(effect) - lag
	unrestricted := 2*lag + 1
	if n-unrestricted < 1 {
		return 0, 0, fmt.Errorf("%d observations cannot support %d parameters", n, unrestricted)
	}

	y := make([]float64, n)
	restrictedX := mat.NewDense(n, lag+1, nil)
	fullX := mat.NewDense(n, unrestricted, nil)

	for i := 0; i < n; i++ {
		t := i + lag
		y[i] = effect[t]
		restrictedX.Set(i, 0, 1)
		fullX.Set(i, 0, 1)
		for j := 1; j <= lag; j++ {
			restrictedX.Set(i, j, effect[t-j])
			fullX.Set(i, j, effect[t-j])
			fullX.Set(i, lag+j, cause[t-j])
		}
	}

	rssRestricted, err := residualSumOfSquares(y, restrictedX)
	if err != nil {
		return 0, 0, err
	}
	rssFull, err := residualSumOfSquares(y, fullX)
	if err != nil {
		return 0, 0, err
	}

	dfDenom := float64(n - unrestricted)
	if rssFull <= 0 {
		return 0, 0, fmt.Errorf("degenerate fit: zero residual variance")
	}

	fstat = ((rssRestricted - rssFull) / float64(lag)) / (rssFull / dfDenom)
	if fstat < 0 {
		fstat = 0
	}
	dist := distuv.F{D1: float64(lag), D2: dfDenom}
	return fstat, dist.Survival(fstat), nil
}

// residualSumOfSquares fits y = Xb by least squares and returns the RSS.
func residualSumOfSquares(y []float64, x *mat.Dense) (float64, error) {
	var qr mat.QR
	qr.Factorize(x)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(len(y), y)); err != nil {
		return 0, fmt.Errorf("solving least squares: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	var rss float64
	for i, v := range y {
		r := v - fitted.AtVec(i)
		rss += r * r
	}
	return rss, nil
}
