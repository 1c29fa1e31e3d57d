// Package smooth builds the spline bases and quadratic penalties of the smooth
// terms of an additive model.
package smooth

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigam/core/parallel"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// KnotKind selects how interior knots are placed.
type KnotKind int

const (
	// KnotsQuantile places interior knots at equally spaced quantiles of x.
	KnotsQuantile KnotKind = iota
	// KnotsEqual places interior knots equally spaced on [min(x), max(x)].
	KnotsEqual
)

// PenaltyKind selects the roughness penalty of a B-spline term.
type PenaltyKind int

const (
	// PenaltyDer2 integrates the squared second derivative over the data range.
	PenaltyDer2 PenaltyKind = iota
	// PenaltyDifference penalizes squared finite differences of the coefficients.
	PenaltyDifference
)

// BSplineOption configures NewBSplines.
type BSplineOption func(*bsplineConfig)

type bsplineConfig struct {
	knotKind       KnotKind
	knots          []float64
	intercept      bool
	penalty        PenaltyKind
	diffOrder      int
	lower, upper   float64
	boundsExplicit bool
}

// WithKnotKind selects quantile (default) or equally spaced knots.
func WithKnotKind(kind KnotKind) BSplineOption {
	return func(c *bsplineConfig) { c.knotKind = kind }
}

// WithKnots fixes the interior knots. The df argument of NewBSplines is then
// derived from the number of knots.
func WithKnots(knots []float64) BSplineOption {
	return func(c *bsplineConfig) { c.knots = append([]float64(nil), knots...) }
}

// WithIntercept keeps the first basis column. Without it (the default) the
// columns of a term do not span the constant.
func WithIntercept(include bool) BSplineOption {
	return func(c *bsplineConfig) { c.intercept = include }
}

// WithDifferencePenalty replaces the integrated second-derivative penalty by
// a difference penalty of the given order on adjacent coefficients.
func WithDifferencePenalty(order int) BSplineOption {
	return func(c *bsplineConfig) {
		c.penalty = PenaltyDifference
		c.diffOrder = order
	}
}

// WithBounds sets the boundary knots instead of min(x) and max(x).
func WithBounds(lower, upper float64) BSplineOption {
	return func(c *bsplineConfig) {
		c.lower, c.upper = lower, upper
		c.boundsExplicit = true
	}
}

// BSplines is a univariate B-spline basis evaluated at a covariate.
type BSplines struct {
	name      string
	x         []float64
	degree    int
	knots     []float64 // full knot vector with repeated boundary knots
	intercept bool
	basis     *mat.Dense
	penalty   *mat.SymDense
}

// NewBSplines evaluates a B-spline basis with df columns of the given degree at x.
func NewBSplines(name string, x []float64, df, degree int, opts ...BSplineOption) (*BSplines, error) {
	const op = "smooth.NewBSplines"
	cfg := bsplineConfig{diffOrder: 2}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(x) == 0 {
		return nil, errors.NewModelError(op, "empty covariate", errors.ErrEmptyData)
	}
	if err := errors.CheckNumericalStability(op, x); err != nil {
		return nil, err
	}
	if degree < 0 {
		return nil, errors.NewInvalidArgumentError(op, "degree", "must be non-negative", degree)
	}

	lower, upper := cfg.lower, cfg.upper
	if !cfg.boundsExplicit {
		lower, upper = x[0], x[0]
		for _, v := range x {
			lower = math.Min(lower, v)
			upper = math.Max(upper, v)
		}
	}
	if !(upper > lower) {
		return nil, errors.NewInvalidArgumentError(op, "x", "covariate range is empty", [2]float64{lower, upper})
	}

	interior := cfg.knots
	if interior == nil {
		nBasis := df
		if !cfg.intercept {
			nBasis++
		}
		nInterior := nBasis - degree - 1
		if nInterior < 0 {
			return nil, errors.NewInvalidArgumentError(op, "df",
				fmt.Sprintf("too small for degree %d", degree), df)
		}
		interior = placeKnots(x, lower, upper, nInterior, cfg.knotKind)
	} else {
		sort.Float64s(interior)
		for _, k := range interior {
			if k <= lower || k >= upper {
				return nil, errors.NewInvalidArgumentError(op, "knots", "interior knots must lie inside the covariate range", k)
			}
		}
	}

	knots := make([]float64, 0, len(interior)+2*(degree+1))
	for i := 0; i <= degree; i++ {
		knots = append(knots, lower)
	}
	knots = append(knots, interior...)
	for i := 0; i <= degree; i++ {
		knots = append(knots, upper)
	}
	if len(knots)-degree-1 < 1 || (!cfg.intercept && len(knots)-degree-1 < 2) {
		return nil, errors.NewInvalidArgumentError(op, "df", "basis would have no columns", df)
	}

	b := &BSplines{
		name:      name,
		x:         append([]float64(nil), x...),
		degree:    degree,
		knots:     knots,
		intercept: cfg.intercept,
	}
	b.basis = b.evaluate(b.x, 0)

	switch cfg.penalty {
	case PenaltyDifference:
		pen, err := differencePenalty(b.DF(), cfg.diffOrder)
		if err != nil {
			return nil, err
		}
		b.penalty = pen
	default:
		b.penalty = b.der2Penalty()
	}
	return b, nil
}

func placeKnots(x []float64, lower, upper float64, m int, kind KnotKind) []float64 {
	knots := make([]float64, m)
	if m == 0 {
		return knots
	}
	if kind == KnotsEqual {
		for k := range knots {
			knots[k] = lower + (upper-lower)*float64(k+1)/float64(m+1)
		}
		return knots
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	for k := range knots {
		knots[k] = stat.Quantile(float64(k+1)/float64(m+1), stat.LinInterp, sorted, nil)
	}
	return knots
}

// Name returns the covariate name used in plots and logs.
func (b *BSplines) Name() string { return b.name }

// X returns the covariate values the basis was built on.
func (b *BSplines) X() []float64 { return b.x }

// Degree returns the polynomial degree.
func (b *BSplines) Degree() int { return b.degree }

// Knots returns the full knot vector, boundary knots repeated degree+1 times.
func (b *BSplines) Knots() []float64 { return append([]float64(nil), b.knots...) }

// DF returns the number of basis columns.
func (b *BSplines) DF() int {
	n := len(b.knots) - b.degree - 1
	if !b.intercept {
		n--
	}
	return n
}

// Basis returns the n×DF basis matrix at the training covariate.
func (b *BSplines) Basis() *mat.Dense { return b.basis }

// Penalty returns the unscaled DF×DF penalty matrix.
func (b *BSplines) Penalty() *mat.SymDense { return b.penalty }

// Transform evaluates the basis at new covariate values. Values outside the
// boundary knots are clamped to the boundary.
func (b *BSplines) Transform(x []float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, errors.NewModelError("smooth.BSplines.Transform", "empty covariate", errors.ErrEmptyData)
	}
	if err := errors.CheckNumericalStability("smooth.BSplines.Transform", x); err != nil {
		return nil, err
	}
	return b.evaluate(x, 0), nil
}

// Derivative evaluates the deriv-th derivative of the basis at x.
func (b *BSplines) Derivative(x []float64, deriv int) *mat.Dense {
	return b.evaluate(x, deriv)
}

func (b *BSplines) evaluate(x []float64, deriv int) *mat.Dense {
	lower, upper := b.knots[0], b.knots[len(b.knots)-1]
	skip := 0
	if !b.intercept {
		skip = 1
	}
	out := mat.NewDense(len(x), b.DF(), nil)
	parallel.Rows(len(x), func(i int) {
		xi := math.Min(math.Max(x[i], lower), upper)
		row := basisDeriv(xi, b.knots, b.degree, deriv)
		out.SetRow(i, row[skip:])
	})
	return out
}

// der2Penalty approximates ∫ B⁽²⁾(t)B⁽²⁾(t)ᵀ dt by the data points with the
// quadrature weight (max − min)/n.
func (b *BSplines) der2Penalty() *mat.SymDense {
	d2 := b.evaluate(b.x, 2)
	n, k := d2.Dims()
	width := (b.knots[len(b.knots)-1] - b.knots[0]) / float64(n)
	pen := mat.NewSymDense(k, nil)
	pen.SymOuterK(width, d2.T())
	return pen
}

func differencePenalty(k, order int) (*mat.SymDense, error) {
	if order < 1 || order >= k {
		return nil, errors.NewInvalidArgumentError("smooth.differencePenalty", "order",
			fmt.Sprintf("must lie in [1, %d)", k), order)
	}
	// Rows of D are the order-th differences of the identity.
	d := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		d.Set(i, i, 1)
	}
	rows := k
	for o := 0; o < order; o++ {
		next := mat.NewDense(rows-1, k, nil)
		for i := 0; i < rows-1; i++ {
			for j := 0; j < k; j++ {
				next.Set(i, j, d.At(i+1, j)-d.At(i, j))
			}
		}
		d = next
		rows--
	}
	pen := mat.NewSymDense(k, nil)
	pen.SymOuterK(1, d.T())
	return pen, nil
}

// basisDeriv returns the deriv-th derivative of all len(knots)−degree−1
// B-splines of the given degree at t.
func basisDeriv(t float64, knots []float64, degree, deriv int) []float64 {
	nb := len(knots) - degree - 1
	if deriv > degree {
		return make([]float64, nb)
	}
	if deriv == 0 {
		return basisValues(t, knots, degree)
	}
	lowerOrder := basisDeriv(t, knots, degree-1, deriv-1)
	out := make([]float64, nb)
	k := float64(degree)
	for i := 0; i < nb; i++ {
		if den := knots[i+degree] - knots[i]; den > 0 {
			out[i] += k * lowerOrder[i] / den
		}
		if den := knots[i+degree+1] - knots[i+1]; den > 0 {
			out[i] -= k * lowerOrder[i+1] / den
		}
	}
	return out
}

// basisValues runs the Cox–de Boor recursion. The last non-empty knot span is
// closed on the right so the upper boundary is covered.
func basisValues(t float64, knots []float64, degree int) []float64 {
	m := len(knots) - 1
	b := make([]float64, m)
	last := -1
	for i := 0; i < m; i++ {
		if knots[i] < knots[i+1] {
			last = i
		}
	}
	for i := 0; i < m; i++ {
		if knots[i] <= t && t < knots[i+1] {
			b[i] = 1
		}
	}
	if last >= 0 && t == knots[last+1] {
		b[last] = 1
	}
	for k := 1; k <= degree; k++ {
		for i := 0; i < m-k; i++ {
			var v float64
			if den := knots[i+k] - knots[i]; den > 0 {
				v += (t - knots[i]) / den * b[i]
			}
			if den := knots[i+k+1] - knots[i+1]; den > 0 {
				v += (knots[i+k+1] - t) / den * b[i+1]
			}
			b[i] = v
		}
	}
	return b[:len(knots)-degree-1]
}
