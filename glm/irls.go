package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/linear"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
)

// PerfectPredictionTol is the absolute tolerance under which a fitted mean
// counts as reproducing the response exactly.
const PerfectPredictionTol = 1e-8

// FitOption configures Fit.
type FitOption func(*fitConfig)

type fitConfig struct {
	maxIter    int
	tol        float64
	rtol       float64
	offset     []float64
	weights    []float64
	start      []float64
	scale      ScaleEstimator
	fixedScale float64
}

// WithMaxIter sets the iteration cap (default 100).
func WithMaxIter(n int) FitOption {
	return func(c *fitConfig) { c.maxIter = n }
}

// WithTol sets the absolute and relative deviance tolerance (defaults 1e-8 and 0).
func WithTol(tol, rtol float64) FitOption {
	return func(c *fitConfig) {
		c.tol = tol
		c.rtol = rtol
	}
}

// WithOffset adds a fixed term to the linear predictor.
func WithOffset(offset []float64) FitOption {
	return func(c *fitConfig) { c.offset = offset }
}

// WithVarWeights sets per-observation variance weights.
func WithVarWeights(w []float64) FitOption {
	return func(c *fitConfig) { c.weights = w }
}

// WithStartParams starts the iteration at the given coefficients.
func WithStartParams(start []float64) FitOption {
	return func(c *fitConfig) { c.start = start }
}

// WithScale selects the scale estimator. fixed is used only with ScaleFixed.
func WithScale(est ScaleEstimator, fixed float64) FitOption {
	return func(c *fitConfig) {
		c.scale = est
		c.fixedScale = fixed
	}
}

// DevianceConverged reports |cur − prev| ≤ tol + rtol·|prev|.
func DevianceConverged(prev, cur, tol, rtol float64) bool {
	return math.Abs(cur-prev) <= tol+rtol*math.Abs(prev)
}

// PerfectPrediction reports whether every fitted mean matches the response.
func PerfectPrediction(y, mu []float64) bool {
	for i := range y {
		if math.Abs(mu[i]-y[i]) > PerfectPredictionTol {
			return false
		}
	}
	return true
}

// ConstantColumn returns the index of the first column whose entries are all
// equal and non-zero, or -1.
func ConstantColumn(X mat.Matrix) int {
	n, p := X.Dims()
	for j := 0; j < p; j++ {
		first := X.At(0, j)
		if first == 0 {
			continue
		}
		constant := true
		for i := 1; i < n; i++ {
			if X.At(i, j) != first {
				constant = false
				break
			}
		}
		if constant {
			return j
		}
	}
	return -1
}

// Fit estimates an unpenalized GLM by iteratively reweighted least squares.
func Fit(y []float64, X mat.Matrix, fam Family, opts ...FitOption) (*Results, error) {
	const op = "glm.Fit"
	cfg := fitConfig{maxIter: 100, tol: 1e-8}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, p := X.Dims()
	if len(y) != n {
		return nil, errors.NewDimensionError(op, n, len(y), 0)
	}
	if cfg.maxIter < 0 {
		return nil, errors.NewInvalidArgumentError(op, "maxiter", "must be non-negative", cfg.maxIter)
	}
	if cfg.start != nil && len(cfg.start) != p {
		return nil, errors.NewDimensionError(op, p, len(cfg.start), 1)
	}
	if cfg.offset != nil && len(cfg.offset) != n {
		return nil, errors.NewDimensionError(op, n, len(cfg.offset), 0)
	}
	if cfg.weights != nil && len(cfg.weights) != n {
		return nil, errors.NewDimensionError(op, n, len(cfg.weights), 0)
	}
	if err := fam.CheckResponse(y); err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("glm.irls").With(log.ModelNameKey, "GLM", log.FamilyKey, fam.Name())
	link := fam.Link()

	var eta, mu []float64
	if cfg.start != nil {
		eta = LinearPredictor(X, cfg.start, cfg.offset)
		mu = make([]float64, n)
		for i := range eta {
			mu[i] = fam.Fitted(eta[i])
		}
	} else {
		mu = fam.StartingMu(y)
		eta = make([]float64, n)
		for i := range mu {
			eta[i] = link.Link(mu[i])
		}
	}
	devPrev := fam.Deviance(y, mu, cfg.weights)

	var (
		wls       *linear.WLSResult
		params    = cfg.start
		converged bool
		iter      int
		err       error
	)
	wts := make([]float64, n)
	z := make([]float64, n)
	for iter = 1; iter <= cfg.maxIter; iter++ {
		for i := range mu {
			wts[i] = weightAt(cfg.weights, i) * fam.Weights(mu[i])
			z[i] = eta[i] + link.Deriv(mu[i])*(y[i]-mu[i])
			if cfg.offset != nil {
				z[i] -= cfg.offset[i]
			}
		}
		wls, err = linear.WLS(z, X, wts)
		if err != nil {
			return nil, err
		}
		params = wls.Params
		eta = LinearPredictor(X, params, cfg.offset)
		for i := range eta {
			mu[i] = fam.Fitted(eta[i])
		}
		dev := fam.Deviance(y, mu, cfg.weights)
		if err := errors.CheckScalar(op, dev); err != nil {
			return nil, err
		}
		logger.Debug("IRLS iteration", log.IterationKey, iter, log.DevianceKey, dev)
		if PerfectPrediction(y, mu) {
			return nil, errors.NewPerfectSeparationError(op, iter)
		}
		if DevianceConverged(devPrev, dev, cfg.tol, cfg.rtol) {
			converged = true
			break
		}
		devPrev = dev
	}
	if iter > cfg.maxIter {
		iter = cfg.maxIter
	}

	if wls == nil {
		if params == nil {
			return nil, errors.NewInvalidArgumentError(op, "start_params", "required when maxiter is 0", nil)
		}
		for i := range mu {
			wts[i] = weightAt(cfg.weights, i) * fam.Weights(mu[i])
		}
		wls, err = linear.WLS(eta, X, wts)
		if err != nil {
			return nil, err
		}
	}
	if !converged && cfg.maxIter > 0 {
		errors.Warn(errors.NewConvergenceWarning("IRLS", iter, ""))
	}

	kConst := 0
	if ConstantColumn(X) >= 0 {
		kConst = 1
	}
	return NewResults(ResultsSpec{
		Family:        fam,
		Endog:         y,
		Exog:          X,
		Offset:        cfg.offset,
		Weights:       cfg.weights,
		Params:        params,
		NormalizedCov: wls.NormalizedCov,
		DFModel:       float64(wls.Rank - kConst),
		DFResid:       float64(n - wls.Rank),
		Scale:         cfg.scale,
		FixedScale:    cfg.fixedScale,
		Iterations:    iter,
		Converged:     converged,
	})
}
