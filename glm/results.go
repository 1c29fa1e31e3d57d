package glm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// FitResult is the generic capability set of a fitted GLM-type model.
type FitResult interface {
	Params() []float64
	CovParams() *mat.SymDense
	Scale() float64
	Predict(exog mat.Matrix, offset []float64) ([]float64, error)
	ResidResponse() []float64
	ResidPearson() []float64
	LLF() float64
	AIC() float64
	BIC() float64
}

// ResultsSpec carries everything needed to build Results. Degrees of freedom
// are taken as given so that penalized fits can install effective values.
type ResultsSpec struct {
	Family Family
	Endog  []float64
	Exog   mat.Matrix
	// Offset is added to the linear predictor; nil means zero.
	Offset []float64
	// Weights are per-observation variance weights; nil means one.
	Weights       []float64
	Params        []float64
	NormalizedCov *mat.SymDense
	DFModel       float64
	DFResid       float64
	Scale         ScaleEstimator
	FixedScale    float64
	Iterations    int
	Converged     bool
}

// Results is an immutable fitted GLM. Derived quantities are computed once at
// construction.
type Results struct {
	family        Family
	endog         []float64
	exog          mat.Matrix
	offset        []float64
	weights       []float64
	params        []float64
	normalizedCov *mat.SymDense
	dfModel       float64
	dfResid       float64
	iterations    int
	converged     bool

	linPred     []float64
	mu          []float64
	deviance    float64
	pearsonChi2 float64
	scale       float64
	llf         float64
}

// NewResults validates the spec and evaluates the fitted mean, deviance,
// Pearson χ², scale and log-likelihood.
func NewResults(spec ResultsSpec) (*Results, error) {
	const op = "glm.NewResults"
	if spec.Family == nil {
		return nil, errors.NewInvalidArgumentError(op, "family", "must not be nil", nil)
	}
	n, p := spec.Exog.Dims()
	if len(spec.Endog) != n {
		return nil, errors.NewDimensionError(op, n, len(spec.Endog), 0)
	}
	if len(spec.Params) != p {
		return nil, errors.NewDimensionError(op, p, len(spec.Params), 1)
	}
	if spec.Offset != nil && len(spec.Offset) != n {
		return nil, errors.NewDimensionError(op, n, len(spec.Offset), 0)
	}
	if spec.Weights != nil && len(spec.Weights) != n {
		return nil, errors.NewDimensionError(op, n, len(spec.Weights), 0)
	}

	r := &Results{
		family:        spec.Family,
		endog:         spec.Endog,
		exog:          spec.Exog,
		offset:        spec.Offset,
		weights:       spec.Weights,
		params:        append([]float64(nil), spec.Params...),
		normalizedCov: spec.NormalizedCov,
		dfModel:       spec.DFModel,
		dfResid:       spec.DFResid,
		iterations:    spec.Iterations,
		converged:     spec.Converged,
	}

	r.linPred = LinearPredictor(spec.Exog, r.params, spec.Offset)
	r.mu = make([]float64, n)
	for i, eta := range r.linPred {
		r.mu[i] = spec.Family.Fitted(eta)
	}
	r.deviance = spec.Family.Deviance(r.endog, r.mu, r.weights)
	for _, v := range r.ResidPearson() {
		r.pearsonChi2 += v * v
	}
	r.scale = EstimateScale(spec.Family, spec.Scale, spec.FixedScale, r.pearsonChi2, r.deviance, r.dfResid)
	r.llf = r.loglike()
	if err := errors.CheckScalar(op, r.deviance); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Results) loglike() float64 {
	scale := r.scale
	if _, ok := r.family.(*Gaussian); ok {
		if _, ok := r.family.Link().(IdentityLink); ok {
			// Gaussian identity uses the maximum likelihood scale.
			var ssr, wsum float64
			for i := range r.endog {
				w := weightAt(r.weights, i)
				d := r.endog[i] - r.mu[i]
				ssr += w * d * d
				wsum += w
			}
			scale = ssr / wsum
		}
	}
	return r.family.LogLike(r.endog, r.mu, r.weights, scale)
}

// LinearPredictor returns X·β + offset.
func LinearPredictor(X mat.Matrix, beta, offset []float64) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	eta := mat.NewVecDense(n, out)
	eta.MulVec(X, mat.NewVecDense(len(beta), beta))
	if offset != nil {
		floats.Add(out, offset)
	}
	return out
}

// Family returns the fitted family.
func (r *Results) Family() Family { return r.family }

// Params returns a copy of the coefficients.
func (r *Results) Params() []float64 { return append([]float64(nil), r.params...) }

// NormalizedCov returns the covariance of the parameters divided by the scale.
func (r *Results) NormalizedCov() *mat.SymDense { return r.normalizedCov }

// CovParams returns scale·NormalizedCov.
func (r *Results) CovParams() *mat.SymDense {
	if r.normalizedCov == nil {
		return nil
	}
	var cov mat.SymDense
	cov.ScaleSym(r.scale, r.normalizedCov)
	return &cov
}

// Bse returns the standard errors of the parameters.
func (r *Results) Bse() []float64 {
	if r.normalizedCov == nil {
		return nil
	}
	p := r.normalizedCov.SymmetricDim()
	se := make([]float64, p)
	for j := range se {
		se[j] = math.Sqrt(r.scale * r.normalizedCov.At(j, j))
	}
	return se
}

func (r *Results) Scale() float64 { return r.scale }

func (r *Results) Mu() []float64 { return append([]float64(nil), r.mu...) }

func (r *Results) LinPred() []float64 { return append([]float64(nil), r.linPred...) }

func (r *Results) Endog() []float64 { return r.endog }

func (r *Results) Exog() mat.Matrix { return r.exog }

func (r *Results) Offset() []float64 { return r.offset }

// VarWeights returns the data weights, nil when none were given.
func (r *Results) VarWeights() []float64 { return r.weights }

func (r *Results) NObs() int { return len(r.endog) }

func (r *Results) DFModel() float64 { return r.dfModel }

func (r *Results) DFResid() float64 { return r.dfResid }

func (r *Results) Iterations() int { return r.iterations }

func (r *Results) Converged() bool { return r.converged }

func (r *Results) Deviance() float64 { return r.deviance }

func (r *Results) PearsonChi2() float64 { return r.pearsonChi2 }

func (r *Results) LLF() float64 { return r.llf }

// AIC is −2·llf + 2(df_model + 1).
func (r *Results) AIC() float64 { return -2*r.llf + 2*(r.dfModel+1) }

// BIC is −2·llf + log(n)(df_model + 1).
func (r *Results) BIC() float64 {
	return -2*r.llf + math.Log(float64(r.NObs()))*(r.dfModel+1)
}

// ResidResponse returns y − μ.
func (r *Results) ResidResponse() []float64 {
	out := make([]float64, len(r.endog))
	floats.SubTo(out, r.endog, r.mu)
	return out
}

// ResidPearson returns (y − μ)·√w / √V(μ).
func (r *Results) ResidPearson() []float64 {
	out := make([]float64, len(r.endog))
	for i := range out {
		out[i] = (r.endog[i] - r.mu[i]) * math.Sqrt(weightAt(r.weights, i)) / math.Sqrt(r.family.Variance(r.mu[i]))
	}
	return out
}

// ResidDeviance returns sign(y − μ)·√dᵢ.
func (r *Results) ResidDeviance() []float64 {
	out := make([]float64, len(r.endog))
	for i := range out {
		d := r.family.Deviance(r.endog[i:i+1], r.mu[i:i+1], nil) * weightAt(r.weights, i)
		out[i] = math.Copysign(math.Sqrt(math.Max(d, 0)), r.endog[i]-r.mu[i])
	}
	return out
}

// IRLSWeights returns the working weights at the fitted mean, data weights
// included.
func (r *Results) IRLSWeights() []float64 {
	out := make([]float64, len(r.mu))
	for i, m := range r.mu {
		out[i] = weightAt(r.weights, i) * r.family.Weights(m)
	}
	return out
}

// Predict returns the mean for new rows of the design matrix.
func (r *Results) Predict(exog mat.Matrix, offset []float64) ([]float64, error) {
	n, p := exog.Dims()
	if p != len(r.params) {
		return nil, errors.NewDimensionError("glm.Predict", len(r.params), p, 1)
	}
	if offset != nil && len(offset) != n {
		return nil, errors.NewDimensionError("glm.Predict", n, len(offset), 0)
	}
	eta := LinearPredictor(exog, r.params, offset)
	for i := range eta {
		eta[i] = r.family.Fitted(eta[i])
	}
	return eta, nil
}

var _ FitResult = (*Results)(nil)
