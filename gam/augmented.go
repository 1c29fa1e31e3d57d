package gam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/linear"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// eigTol is the relative tolerance below which negative eigenvalues of a
// penalty matrix are treated as rounding error and clipped to zero.
const eigTol = 1e-10

// Augmented is a weighted least squares problem whose residual sum of squares
// equals the penalized one of the original problem.
type Augmented struct {
	// X is [X; R] with RᵀR = S, (n+p)×p.
	X *mat.Dense
	// Y is [y; 0].
	Y []float64
	// W is [w; 1].
	W []float64
}

// AugmentedMatrix stacks a square root of the penalty S under the design so
// that ‖√w'(y' − X'β)‖² = ‖√w(y − Xβ)‖² + βᵀSβ. A nil w means unit weights.
func AugmentedMatrix(y []float64, X mat.Matrix, S mat.Symmetric, w []float64) (aug *Augmented, err error) {
	const op = "gam.AugmentedMatrix"
	defer errors.Recover(&err, op)

	n, p := X.Dims()
	if len(y) != n {
		return nil, errors.NewDimensionError(op, n, len(y), 0)
	}
	if w != nil && len(w) != n {
		return nil, errors.NewDimensionError(op, n, len(w), 0)
	}
	if S.SymmetricDim() != p {
		return nil, errors.NewDimensionError(op, p, S.SymmetricDim(), 1)
	}

	r, err := matrixSqrt(S)
	if err != nil {
		return nil, err
	}

	xa := mat.NewDense(n+p, p, nil)
	xa.Slice(0, n, 0, p).(*mat.Dense).Copy(X)
	xa.Slice(n, n+p, 0, p).(*mat.Dense).Copy(r)

	ya := make([]float64, n+p)
	copy(ya, y)

	wa := make([]float64, n+p)
	for i := range wa {
		wa[i] = 1
	}
	if w != nil {
		copy(wa, w)
	}
	return &Augmented{X: xa, Y: ya, W: wa}, nil
}

// matrixSqrt returns R = Λ^{1/2}Vᵀ from the eigendecomposition S = VΛVᵀ.
func matrixSqrt(S mat.Symmetric) (*mat.Dense, error) {
	const op = "gam.matrixSqrt"
	p := S.SymmetricDim()
	var eig mat.EigenSym
	if ok := eig.Factorize(S, true); !ok {
		return nil, errors.WrapNumericalError(op, "eigendecomposition of the penalty failed", errors.ErrNotPSD)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	var maxAbs float64
	for _, v := range vals {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	limit := -eigTol * math.Max(1, maxAbs)
	for i, v := range vals {
		if v < limit {
			return nil, errors.WithStack(&errors.NumericalError{
				Op:     op,
				Reason: fmt.Sprintf("penalty matrix has negative eigenvalue %g", v),
				Values: vals,
				Err:    errors.ErrNotPSD,
			})
		}
		if v < 0 {
			vals[i] = 0
		}
	}

	r := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		s := math.Sqrt(vals[i])
		if s == 0 {
			continue
		}
		for j := 0; j < p; j++ {
			r.Set(i, j, s*vecs.At(j, i))
		}
	}
	return r, nil
}

// PenalizedWLS minimizes ‖√w(y − Xβ)‖² + βᵀSβ through the augmented problem
// and returns the coefficients with the normalized covariance (X'ᵀW'X')⁻¹.
// S must already carry the factor two of the penalized score equations; the
// P-IRLS engine passes 2·S(α).
func PenalizedWLS(y []float64, X mat.Matrix, S mat.Symmetric, w []float64) (*linear.WLSResult, error) {
	aug, err := AugmentedMatrix(y, X, S, w)
	if err != nil {
		return nil, err
	}
	return linear.WLS(aug.Y, aug.X, aug.W)
}
