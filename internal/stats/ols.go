package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// olsFit is a least-squares fit with classical standard errors
type olsFit struct {
	coef   []float64
	stderr []float64
	ssr    float64
	nobs   int
}

// tvalue returns coef/stderr for column j
func (f olsFit) tvalue(j int) float64 {
	if f.stderr[j] == 0 {
		if f.coef[j] < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return f.coef[j] / f.stderr[j]
}

// aic is -2*loglik + 2k for Gaussian errors
func (f olsFit) aic() float64 {
	n := float64(f.nobs)
	k := float64(len(f.coef))
	llf := -n/2*math.Log(2*math.Pi) - n/2*math.Log(f.ssr/n) - n/2
	return -2*llf + 2*k
}

// ols regresses y on the given regressor columns (no implicit intercept).
// ok is false when the design is rank deficient or there are no residual
// degrees of freedom.
func ols(y []float64, cols [][]float64) (olsFit, bool) {
	n, k := len(y), len(cols)
	if k == 0 || n <= k {
		return olsFit{}, false
	}

	x := mat.NewDense(n, k, nil)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			x.Set(i, j, col[i])
		}
	}
	yv := mat.NewDense(n, 1, append([]float64(nil), y...))

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		if c, isCond := err.(mat.Condition); !isCond || math.IsInf(float64(c), 1) {
			return olsFit{}, false
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	var b mat.Dense
	if err := qr.SolveTo(&b, false, yv); err != nil {
		return olsFit{}, false
	}

	ssr := 0.0
	for i := 0; i < n; i++ {
		fitted := 0.0
		for j := 0; j < k; j++ {
			fitted += x.At(i, j) * b.At(j, 0)
		}
		r := y[i] - fitted
		ssr += r * r
	}

	sigma2 := ssr / float64(n-k)
	fit := olsFit{coef: make([]float64, k), stderr: make([]float64, k), ssr: ssr, nobs: n}
	for j := 0; j < k; j++ {
		fit.coef[j] = b.At(j, 0)
		v := sigma2 * inv.At(j, j)
		if v < 0 {
			v = 0
		}
		fit.stderr[j] = math.Sqrt(v)
	}
	return fit, true
}
