package gam

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/core/parallel"
	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Criterion names a model selection criterion.
type Criterion string

const (
	CriterionAIC Criterion = "aic"
	CriterionBIC Criterion = "bic"
	CriterionGCV Criterion = "gcv"
	CriterionCV  Criterion = "cv"
)

// ParseCriterion validates a criterion name.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(s); c {
	case CriterionAIC, CriterionBIC, CriterionGCV, CriterionCV:
		return c, nil
	}
	return "", errors.NewInvalidArgumentError("gam.ParseCriterion", "criterion", "must be one of aic, bic, gcv, cv", s)
}

// Results is a fitted GAM. It wraps the generic GLM results, whose degrees of
// freedom are the effective ones, and adds the hat-matrix accounting.
type Results struct {
	*glm.Results

	model   *Model
	alpha   []float64
	history History

	// a is √w·X at the final mean and b is a·NormalizedCov.
	a, b *mat.Dense
	edf  []float64

	hatOnce sync.Once
	hatDiag []float64
	gcvOnce sync.Once
	gcv     float64
	cvOnce  sync.Once
	cv      float64
}

func (m *Model) newResults(c *fitContext, params []float64, normCov *mat.SymDense, hist History) (*Results, error) {
	n, p := m.exog.Dims()
	m.updateMean(c, params)

	a := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(c.dataWeight(i) * m.family.Weights(c.mu[i]))
		for j := 0; j < p; j++ {
			a.Set(i, j, sw*m.exog.At(i, j))
		}
	}
	b := mat.NewDense(n, p, nil)
	b.Mul(a, normCov)

	edf := make([]float64, p)
	var total float64
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			edf[j] += a.At(i, j) * b.At(i, j)
		}
		total += edf[j]
	}

	gr, err := glm.NewResults(glm.ResultsSpec{
		Family:        m.family,
		Endog:         m.endog,
		Exog:          m.exog,
		Offset:        m.offset,
		Weights:       c.weights,
		Params:        params,
		NormalizedCov: normCov,
		DFModel:       total - 1,
		DFResid:       float64(n) - total,
		Scale:         c.cfg.Scale,
		FixedScale:    c.cfg.FixedScale,
		Iterations:    hist.Iterations,
		Converged:     hist.Converged,
	})
	if err != nil {
		return nil, err
	}
	return &Results{
		Results: gr,
		model:   m,
		alpha:   append([]float64(nil), c.alpha...),
		history: hist,
		a:       a,
		b:       b,
		edf:     edf,
	}, nil
}

// Model returns the fitted model.
func (r *Results) Model() *Model { return r.model }

// Alpha returns the penalty weights of this fit.
func (r *Results) Alpha() []float64 { return append([]float64(nil), r.alpha...) }

// History returns the per-iteration fit history.
func (r *Results) History() History { return r.history }

// EDF returns the effective degrees of freedom per coefficient.
func (r *Results) EDF() []float64 { return append([]float64(nil), r.edf...) }

// EDFTotal returns the sum of EDF.
func (r *Results) EDFTotal() float64 {
	var s float64
	for _, v := range r.edf {
		s += v
	}
	return s
}

// HatMatrixDiag returns the diagonal of the hat matrix, one value per observation.
func (r *Results) HatMatrixDiag() []float64 {
	r.hatOnce.Do(func() {
		n, p := r.a.Dims()
		r.hatDiag = make([]float64, n)
		parallel.Rows(n, func(i int) {
			var s float64
			for j := 0; j < p; j++ {
				s += r.a.At(i, j) * r.b.At(i, j)
			}
			r.hatDiag[i] = s
		})
	})
	return append([]float64(nil), r.hatDiag...)
}

// HatMatrixTrace returns the trace of the hat matrix.
func (r *Results) HatMatrixTrace() float64 {
	var s float64
	for _, v := range r.HatMatrixDiag() {
		s += v
	}
	return s
}

// GCV is scale / (1 − trace/n)².
func (r *Results) GCV() float64 {
	r.gcvOnce.Do(func() {
		d := 1 - r.HatMatrixTrace()/float64(r.NObs())
		r.gcv = r.Scale() / (d * d)
	})
	return r.gcv
}

// CV is the mean of (pearsonᵢ / (1 − hᵢ))².
func (r *Results) CV() float64 {
	r.cvOnce.Do(func() {
		hd := r.HatMatrixDiag()
		var s float64
		for i, e := range r.ResidPearson() {
			q := e / (1 - hd[i])
			s += q * q
		}
		r.cv = s / float64(len(hd))
	})
	return r.cv
}

// Criterion returns the value of the named criterion.
func (r *Results) Criterion(c Criterion) (float64, error) {
	switch c {
	case CriterionAIC:
		return r.AIC(), nil
	case CriterionBIC:
		return r.BIC(), nil
	case CriterionGCV:
		return r.GCV(), nil
	case CriterionCV:
		return r.CV(), nil
	}
	return 0, errors.NewInvalidArgumentError("gam.Results.Criterion", "criterion", "unknown criterion", string(c))
}

// PenalizedDeviance returns D(β) + 2·βᵀS(α)β at the fitted parameters.
func (r *Results) PenalizedDeviance() (float64, error) {
	pen, err := r.model.penalty.Func(r.Params(), r.alpha)
	if err != nil {
		return 0, err
	}
	return r.Deviance() + 2*pen, nil
}

// PenalizedDevianceGrad returns the gradient of PenalizedDeviance with respect
// to the parameters. It vanishes at the penalized optimum.
func (r *Results) PenalizedDevianceGrad() ([]float64, error) {
	grad, err := r.model.penalty.Grad(r.Params(), r.alpha)
	if err != nil {
		return nil, err
	}
	for j := range grad {
		grad[j] *= 2
	}
	fam := r.Family()
	link := fam.Link()
	y, mu, w := r.Endog(), r.Mu(), r.VarWeights()
	X := r.model.exog
	_, p := X.Dims()
	for i := range y {
		s := 2 * (y[i] - mu[i]) / (fam.Variance(mu[i]) * link.Deriv(mu[i]))
		if w != nil {
			s *= w[i]
		}
		for j := 0; j < p; j++ {
			grad[j] -= s * X.At(i, j)
		}
	}
	return grad, nil
}

func (r *Results) String() string {
	return fmt.Sprintf("GLMGam %s: n=%d edf=%.3f deviance=%.6g scale=%.6g converged=%t iterations=%d",
		r.Family().Name(), r.NObs(), r.EDFTotal(), r.Deviance(), r.Scale(), r.Converged(), r.history.Iterations)
}
