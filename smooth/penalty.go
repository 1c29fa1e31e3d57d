package smooth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Penalty generates the block-diagonal penalty matrix of a design whose first
// startIdx columns are unpenalized linear terms followed by the smoother basis.
type Penalty struct {
	smoother Smoother
	startIdx int
	k        int
}

// NewPenalty returns the penalty generator for a smoother placed after
// startIdx linear columns.
func NewPenalty(s Smoother, startIdx int) *Penalty {
	_, cols := s.Basis().Dims()
	return &Penalty{smoother: s, startIdx: startIdx, k: startIdx + cols}
}

// Dim returns the side length of the penalty matrix.
func (p *Penalty) Dim() int { return p.k }

// NumTerms returns the number of penalty weights Matrix expects.
func (p *Penalty) NumTerms() int { return p.smoother.NumTerms() }

// Matrix returns Σ αᵢ Sᵢ embedded at each term's columns.
func (p *Penalty) Matrix(alpha []float64) (*mat.SymDense, error) {
	if err := p.checkAlpha(alpha); err != nil {
		return nil, err
	}
	out := mat.NewSymDense(p.k, nil)
	for i := 0; i < p.smoother.NumTerms(); i++ {
		if alpha[i] == 0 {
			continue
		}
		start, _ := p.smoother.Columns(i)
		pen := p.smoother.Term(i).Penalty()
		d := pen.SymmetricDim()
		off := p.startIdx + start
		for r := 0; r < d; r++ {
			for c := r; c < d; c++ {
				out.SetSym(off+r, off+c, alpha[i]*pen.At(r, c))
			}
		}
	}
	return out, nil
}

// Func returns βᵀ S(α) β.
func (p *Penalty) Func(params, alpha []float64) (float64, error) {
	s, err := p.Matrix(alpha)
	if err != nil {
		return 0, err
	}
	if len(params) != p.k {
		return 0, errors.NewDimensionError("smooth.Penalty.Func", p.k, len(params), 1)
	}
	b := mat.NewVecDense(p.k, params)
	return mat.Inner(b, s, b), nil
}

// Grad returns 2 S(α) β.
func (p *Penalty) Grad(params, alpha []float64) ([]float64, error) {
	s, err := p.Matrix(alpha)
	if err != nil {
		return nil, err
	}
	if len(params) != p.k {
		return nil, errors.NewDimensionError("smooth.Penalty.Grad", p.k, len(params), 1)
	}
	out := make([]float64, p.k)
	g := mat.NewVecDense(p.k, out)
	g.MulVec(s, mat.NewVecDense(p.k, params))
	g.ScaleVec(2, g)
	return out, nil
}

func (p *Penalty) checkAlpha(alpha []float64) error {
	const op = "smooth.Penalty.Matrix"
	if len(alpha) != p.smoother.NumTerms() {
		return errors.NewInvalidArgumentError(op, "alpha",
			fmt.Sprintf("need one weight per smooth term (%d)", p.smoother.NumTerms()), len(alpha))
	}
	for _, a := range alpha {
		if a < 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return errors.NewInvalidArgumentError(op, "alpha", "weights must be finite and non-negative", a)
		}
	}
	return nil
}
