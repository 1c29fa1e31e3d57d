package gam

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// WaldTest is the result of a joint Wald test that a smooth term is zero.
type WaldTest struct {
	Term      int
	Statistic float64
	// DF is the effective degrees of freedom of the term.
	DF     float64
	PValue float64
}

func (r *Results) checkTerm(op string, term int) error {
	if term < 0 || term >= r.model.NumTerms() {
		return errors.NewInvalidArgumentError(op, "term", "no such smooth term", term)
	}
	return nil
}

// PartialValues returns the contribution of one smooth term to the linear
// predictor at the training data and its standard error. With
// includeConstant the intercept of the linear block is added, so the band
// does not collapse at the identification constraint.
func (r *Results) PartialValues(term int, includeConstant bool) (fitted, se []float64, err error) {
	const op = "gam.Results.PartialValues"
	if err := r.checkTerm(op, term); err != nil {
		return nil, nil, err
	}
	idx := r.model.TermIndices(term)
	if includeConstant && r.model.ConstIdx() >= 0 {
		idx = append([]int{r.model.ConstIdx()}, idx...)
	}

	exog := r.model.Exog()
	n, _ := exog.Dims()
	k := len(idx)
	params := r.Params()
	cov := r.CovParams()

	part := mat.NewDense(n, k, nil)
	beta := mat.NewVecDense(k, nil)
	sub := mat.NewSymDense(k, nil)
	for a, ja := range idx {
		beta.SetVec(a, params[ja])
		for i := 0; i < n; i++ {
			part.Set(i, a, exog.At(i, ja))
		}
		for b := a; b < k; b++ {
			sub.SetSym(a, b, cov.At(ja, idx[b]))
		}
	}

	fitted = make([]float64, n)
	mat.NewVecDense(n, fitted).MulVec(part, beta)
	se = make([]float64, n)
	for i := 0; i < n; i++ {
		row := part.RowView(i)
		se[i] = math.Sqrt(math.Max(mat.Inner(row, sub, row), 0))
	}
	return fitted, se, nil
}

// TestSignificance tests that all coefficients of a smooth term are zero with
// a χ² Wald statistic on the term's effective degrees of freedom.
func (r *Results) TestSignificance(term int) (*WaldTest, error) {
	const op = "gam.Results.TestSignificance"
	if err := r.checkTerm(op, term); err != nil {
		return nil, err
	}
	idx := r.model.TermIndices(term)
	params := r.Params()
	cov := r.CovParams()
	k := len(idx)

	beta := mat.NewVecDense(k, nil)
	sub := mat.NewDense(k, k, nil)
	var df float64
	for a, ja := range idx {
		beta.SetVec(a, params[ja])
		df += r.edf[ja]
		for b, jb := range idx {
			sub.Set(a, b, cov.At(ja, jb))
		}
	}

	inv, err := pinv(sub)
	if err != nil {
		return nil, err
	}
	stat := mat.Inner(beta, inv, beta)
	p := distuv.ChiSquared{K: df}.Survival(stat)
	return &WaldTest{Term: term, Statistic: stat, DF: df, PValue: p}, nil
}

// pinv returns the Moore–Penrose pseudo-inverse, dropping singular values
// below 1e-12·max(m, n)·σmax.
func pinv(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.WrapNumericalError("gam.pinv", "SVD failed", errors.ErrSingularMatrix)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	var maxS float64
	for _, si := range s {
		maxS = math.Max(maxS, si)
	}
	rows, cols := a.Dims()
	eps := 1e-12 * float64(max(rows, cols)) * maxS

	sp := mat.NewDiagDense(len(s), nil)
	for i, si := range s {
		if si > eps {
			sp.SetDiag(i, 1/si)
		}
	}
	var vs, out mat.Dense
	vs.Mul(&v, sp)
	out.Mul(&vs, u.T())
	return &out, nil
}

// Predict returns the mean response for new data. linear holds the rows of
// the linear block (nil when the model has none) and xs one covariate slice
// per smooth term, mapped through the smoother's basis.
func (r *Results) Predict(linear mat.Matrix, xs [][]float64, offset []float64) ([]float64, error) {
	exog, err := r.model.Design(linear, xs)
	if err != nil {
		return nil, err
	}
	return r.Results.Predict(exog, offset)
}

// Design builds the design matrix for new data.
func (m *Model) Design(linear mat.Matrix, xs [][]float64) (*mat.Dense, error) {
	const op = "gam.Model.Design"
	basis, err := m.smoother.Transform(xs)
	if err != nil {
		return nil, err
	}
	n, kSmooth := basis.Dims()
	if m.kLinear > 0 {
		if linear == nil {
			return nil, errors.NewDimensionError(op, m.kLinear, 0, 1)
		}
		rows, cols := linear.Dims()
		if rows != n {
			return nil, errors.NewDimensionError(op, n, rows, 0)
		}
		if cols != m.kLinear {
			return nil, errors.NewDimensionError(op, m.kLinear, cols, 1)
		}
	}
	exog := mat.NewDense(n, m.kLinear+kSmooth, nil)
	if m.kLinear > 0 {
		exog.Slice(0, n, 0, m.kLinear).(*mat.Dense).Copy(linear)
	}
	exog.Slice(0, n, m.kLinear, m.kLinear+kSmooth).(*mat.Dense).Copy(basis)
	return exog, nil
}
