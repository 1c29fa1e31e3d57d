package gam

import (
	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// CovType selects the parameter covariance. Only the model-based covariance
// of the penalized fit is available.
type CovType int

const (
	// CovNonRobust is the inverse penalized information scaled by the dispersion.
	CovNonRobust CovType = iota
)

func (c CovType) String() string {
	if c == CovNonRobust {
		return "nonrobust"
	}
	return "unknown"
}

// FitConfig gathers the numerical settings of one P-IRLS run.
type FitConfig struct {
	// MaxIter is a hard cap on iterations. Zero evaluates the fit at the
	// start parameters without iterating.
	MaxIter int `json:"maxiter"`
	// Tol and RTol bound the deviance change: |Δdev| ≤ Tol + RTol·|dev|.
	Tol  float64 `json:"tol"`
	RTol float64 `json:"rtol"`
	// MinIter is the number of iterations before convergence may be declared.
	MinIter int `json:"miniter"`
	// Scale selects the dispersion estimator; FixedScale is its value for
	// glm.ScaleFixed.
	Scale      glm.ScaleEstimator `json:"scale"`
	FixedScale float64            `json:"fixed_scale"`
	CovType    CovType            `json:"cov_type"`
}

// DefaultFitConfig returns MaxIter 100, Tol 1e-8, RTol 0, MinIter 1, Pearson
// scale and the non-robust covariance.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxIter: 100,
		Tol:     1e-8,
		MinIter: 1,
		Scale:   glm.ScalePearson,
		CovType: CovNonRobust,
	}
}

// Validate rejects settings that cannot drive a fit.
func (c FitConfig) Validate() error {
	const op = "gam.FitConfig"
	switch {
	case c.MaxIter < 0:
		return errors.NewInvalidArgumentError(op, "maxiter", "must be non-negative", c.MaxIter)
	case c.MinIter < 0:
		return errors.NewInvalidArgumentError(op, "miniter", "must be non-negative", c.MinIter)
	case !(c.Tol > 0):
		return errors.NewInvalidArgumentError(op, "tol", "must be positive", c.Tol)
	case c.RTol < 0:
		return errors.NewInvalidArgumentError(op, "rtol", "must be non-negative", c.RTol)
	case c.Scale < glm.ScalePearson || c.Scale > glm.ScaleFixed:
		return errors.NewInvalidArgumentError(op, "scale", "unknown scale estimator", c.Scale)
	case c.Scale == glm.ScaleFixed && !(c.FixedScale > 0):
		return errors.NewInvalidArgumentError(op, "fixed_scale", "must be positive with a fixed scale", c.FixedScale)
	case c.CovType != CovNonRobust:
		return errors.NewInvalidArgumentError(op, "cov_type", "only nonrobust is supported", c.CovType)
	}
	return nil
}

// FitOption adjusts a single fit call.
type FitOption func(*fitOptions)

type fitOptions struct {
	config  FitConfig
	start   []float64
	weights []float64
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg FitConfig) FitOption {
	return func(o *fitOptions) { o.config = cfg }
}

// WithMaxIter sets the iteration cap.
func WithMaxIter(n int) FitOption {
	return func(o *fitOptions) { o.config.MaxIter = n }
}

// WithTol sets the absolute and relative deviance tolerances.
func WithTol(tol, rtol float64) FitOption {
	return func(o *fitOptions) {
		o.config.Tol = tol
		o.config.RTol = rtol
	}
}

// WithMinIter sets the number of iterations before convergence is checked.
func WithMinIter(n int) FitOption {
	return func(o *fitOptions) { o.config.MinIter = n }
}

// WithScale selects the dispersion estimator. fixed is used with glm.ScaleFixed.
func WithScale(est glm.ScaleEstimator, fixed float64) FitOption {
	return func(o *fitOptions) {
		o.config.Scale = est
		o.config.FixedScale = fixed
	}
}

// WithCovType selects the covariance type.
func WithCovType(c CovType) FitOption {
	return func(o *fitOptions) { o.config.CovType = c }
}

// WithStartParams warm-starts the iteration at the given coefficients.
func WithStartParams(params []float64) FitOption {
	return func(o *fitOptions) { o.start = params }
}

// WithWeights sets per-observation data weights.
func WithWeights(w []float64) FitOption {
	return func(o *fitOptions) { o.weights = w }
}

func newFitOptions(opts []FitOption) fitOptions {
	o := fitOptions{config: DefaultFitConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
