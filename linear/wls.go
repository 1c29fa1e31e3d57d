// Package linear solves ordinary weighted least squares problems.
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// WLSResult holds the solution of a weighted least squares problem.
type WLSResult struct {
	// Params are the fitted coefficients, length p.
	Params []float64
	// NormalizedCov is (XᵀWX)⁻¹. Multiply by the scale to get the covariance.
	NormalizedCov *mat.SymDense
	// Rank is the numerical rank of √W·X.
	Rank int
	// SSR is the weighted residual sum of squares Σ wᵢ(yᵢ − xᵢᵀβ)².
	SSR float64
}

// WLS minimizes Σ wᵢ(yᵢ − xᵢᵀβ)² by a Householder QR decomposition of √W·X.
// A nil w means unit weights. Rank deficiency is reported as a NumericalError
// wrapping errors.ErrSingularMatrix; no pseudo-inverse fallback is attempted.
func WLS(y []float64, X mat.Matrix, w []float64, opts ...Option) (res *WLSResult, err error) {
	defer errors.Recover(&err, "linear.WLS")

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.NewModelError("linear.WLS", "empty design", errors.ErrEmptyData)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("linear.WLS", n, len(y), 0)
	}
	if w != nil && len(w) != n {
		return nil, errors.NewDimensionError("linear.WLS", n, len(w), 0)
	}
	if n < p {
		return nil, errors.WrapNumericalError("linear.WLS",
			fmt.Sprintf("underdetermined system with %d rows and %d columns", n, p), errors.ErrSingularMatrix)
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		sw := 1.0
		if w != nil {
			if w[i] < 0 || math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
				return nil, errors.NewValueError("linear.WLS", fmt.Sprintf("weight %d is %g, weights must be finite and non-negative", i, w[i]))
			}
			sw = math.Sqrt(w[i])
		}
		for j := 0; j < p; j++ {
			a.Set(i, j, sw*X.At(i, j))
		}
		b.Set(i, 0, sw*y[i])
	}

	var qr mat.QR
	qr.Factorize(a)

	var r mat.Dense
	qr.RTo(&r)

	rank := numericalRank(&r, n, p, cfg.rankTol)
	if rank < p {
		return nil, errors.WrapNumericalError("linear.WLS",
			fmt.Sprintf("design is rank deficient (rank %d < %d columns)", rank, p), errors.ErrSingularMatrix)
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, b); err != nil {
		return nil, errors.WrapNumericalError("linear.WLS", "least squares solve failed", err)
	}

	rt := mat.NewTriDense(p, mat.Upper, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			rt.SetTri(i, j, r.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(rt); err != nil {
		return nil, errors.WrapNumericalError("linear.WLS", "R factor is singular", err)
	}
	cov := mat.NewSymDense(p, nil)
	cov.SymOuterK(1, &rinv)

	params := make([]float64, p)
	for j := range params {
		params[j] = beta.At(j, 0)
	}

	var fitted mat.Dense
	fitted.Mul(a, &beta)
	var ssr float64
	for i := 0; i < n; i++ {
		d := b.At(i, 0) - fitted.At(i, 0)
		ssr += d * d
	}

	return &WLSResult{Params: params, NormalizedCov: cov, Rank: rank, SSR: ssr}, nil
}

func numericalRank(r *mat.Dense, n, p int, tol float64) int {
	var maxDiag float64
	for j := 0; j < p; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	if tol <= 0 {
		tol = float64(max(n, p)) * maxDiag * 2.220446049250313e-16
	}
	rank := 0
	for j := 0; j < p; j++ {
		if math.Abs(r.At(j, j)) > tol {
			rank++
		}
	}
	return rank
}
