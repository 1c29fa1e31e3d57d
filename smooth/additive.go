package smooth

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Term is one univariate smooth of an additive model.
type Term interface {
	Name() string
	X() []float64
	DF() int
	Basis() *mat.Dense
	Penalty() *mat.SymDense
	Transform(x []float64) (*mat.Dense, error)
}

// Smoother is the basis and penalty source consumed by the GAM engine.
type Smoother interface {
	// Basis returns the column-stacked basis of all terms.
	Basis() *mat.Dense
	NumTerms() int
	Term(i int) Term
	// Columns returns the half-open column range of term i within Basis.
	Columns(i int) (start, end int)
	// Mask reports, per basis column, whether it belongs to term i.
	Mask(i int) []bool
	// Transform evaluates the basis at new covariates, one slice per term.
	Transform(xs [][]float64) (*mat.Dense, error)
}

// AdditiveSmoother stacks the bases of several terms column-wise.
type AdditiveSmoother struct {
	terms  []Term
	starts []int
	basis  *mat.Dense
}

// NewAdditiveSmoother combines terms evaluated on the same observations.
func NewAdditiveSmoother(terms ...Term) (*AdditiveSmoother, error) {
	const op = "smooth.NewAdditiveSmoother"
	if len(terms) == 0 {
		return nil, errors.NewInvalidArgumentError(op, "terms", "at least one smooth term is required", 0)
	}
	n := len(terms[0].X())
	starts := make([]int, len(terms)+1)
	for i, t := range terms {
		if len(t.X()) != n {
			return nil, errors.NewDimensionError(op, n, len(t.X()), 0)
		}
		starts[i+1] = starts[i] + t.DF()
	}

	basis := mat.NewDense(n, starts[len(terms)], nil)
	for i, t := range terms {
		view := basis.Slice(0, n, starts[i], starts[i+1]).(*mat.Dense)
		view.Copy(t.Basis())
	}
	return &AdditiveSmoother{terms: terms, starts: starts, basis: basis}, nil
}

func (s *AdditiveSmoother) Basis() *mat.Dense { return s.basis }

func (s *AdditiveSmoother) NumTerms() int { return len(s.terms) }

func (s *AdditiveSmoother) Term(i int) Term { return s.terms[i] }

func (s *AdditiveSmoother) Columns(i int) (start, end int) {
	return s.starts[i], s.starts[i+1]
}

// DF returns the total number of basis columns.
func (s *AdditiveSmoother) DF() int { return s.starts[len(s.terms)] }

func (s *AdditiveSmoother) Mask(i int) []bool {
	mask := make([]bool, s.DF())
	for j := s.starts[i]; j < s.starts[i+1]; j++ {
		mask[j] = true
	}
	return mask
}

func (s *AdditiveSmoother) Transform(xs [][]float64) (*mat.Dense, error) {
	const op = "smooth.AdditiveSmoother.Transform"
	if len(xs) != len(s.terms) {
		return nil, errors.NewDimensionError(op, len(s.terms), len(xs), 1)
	}
	n := len(xs[0])
	out := mat.NewDense(n, s.DF(), nil)
	for i, t := range s.terms {
		if len(xs[i]) != n {
			return nil, errors.NewDimensionError(op, n, len(xs[i]), 0)
		}
		b, err := t.Transform(xs[i])
		if err != nil {
			return nil, err
		}
		out.Slice(0, n, s.starts[i], s.starts[i+1]).(*mat.Dense).Copy(b)
	}
	return out, nil
}

var _ Smoother = (*AdditiveSmoother)(nil)
