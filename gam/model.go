// Package gam fits generalized additive models by penalized iteratively
// reweighted least squares and selects the penalty weights of the smooth
// terms by minimizing AIC, BIC, GCV or CV.
//
// A Model is immutable after construction. Every fit carries its scratch
// state in a per-call context, so one Model can serve concurrent fits.
package gam

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"github.com/YuminosukeSato/scigam/smooth"
)

// ModelOption configures NewModel.
type ModelOption func(*Model) error

// WithOffset adds a fixed term to the linear predictor.
func WithOffset(offset []float64) ModelOption {
	return func(m *Model) error {
		if len(offset) != len(m.endog) {
			return errors.NewDimensionError("gam.WithOffset", len(m.endog), len(offset), 0)
		}
		m.addOffset(offset)
		return nil
	}
}

// WithExposure adds log(exposure) to the linear predictor.
func WithExposure(exposure []float64) ModelOption {
	return func(m *Model) error {
		if len(exposure) != len(m.endog) {
			return errors.NewDimensionError("gam.WithExposure", len(m.endog), len(exposure), 0)
		}
		logExp := make([]float64, len(exposure))
		for i, e := range exposure {
			if !(e > 0) {
				return errors.NewInvalidArgumentError("gam.WithExposure", "exposure", "must be positive", e)
			}
			logExp[i] = math.Log(e)
		}
		m.addOffset(logExp)
		return nil
	}
}

// WithLogger replaces the component logger.
func WithLogger(l log.Logger) ModelOption {
	return func(m *Model) error {
		m.logger = l
		return nil
	}
}

// Model is a GAM specification: response, linear block, smooth terms,
// penalty weights and family.
type Model struct {
	endog    []float64
	exog     *mat.Dense
	kLinear  int
	constIdx int
	smoother smooth.Smoother
	penalty  *smooth.Penalty
	alpha    []float64
	family   glm.Family
	offset   []float64
	logger   log.Logger
}

// NewModel builds the design [linear | smoother basis]. linear may be nil.
// alpha is validated against the number of smooth terms.
func NewModel(endog []float64, linear mat.Matrix, s smooth.Smoother, alpha Alpha, family glm.Family, opts ...ModelOption) (*Model, error) {
	const op = "gam.NewModel"
	if s == nil {
		return nil, errors.NewInvalidArgumentError(op, "smoother", "must not be nil", nil)
	}
	if family == nil {
		family = glm.NewGaussian()
	}
	basis := s.Basis()
	n, kSmooth := basis.Dims()
	if len(endog) != n {
		return nil, errors.NewDimensionError(op, n, len(endog), 0)
	}
	if err := family.CheckResponse(endog); err != nil {
		return nil, err
	}

	kLinear := 0
	if linear != nil {
		var rows int
		rows, kLinear = linear.Dims()
		if rows != n {
			return nil, errors.NewDimensionError(op, n, rows, 0)
		}
	}
	exog := mat.NewDense(n, kLinear+kSmooth, nil)
	if kLinear > 0 {
		exog.Slice(0, n, 0, kLinear).(*mat.Dense).Copy(linear)
	}
	exog.Slice(0, n, kLinear, kLinear+kSmooth).(*mat.Dense).Copy(basis)
	if err := errors.CheckMatrix(op, exog); err != nil {
		return nil, err
	}

	a, err := alpha.Resolve(s.NumTerms())
	if err != nil {
		return nil, err
	}

	m := &Model{
		endog:    append([]float64(nil), endog...),
		exog:     exog,
		kLinear:  kLinear,
		constIdx: -1,
		smoother: s,
		penalty:  smooth.NewPenalty(s, kLinear),
		alpha:    a,
		family:   family,
		logger:   log.GetLoggerWithName("gam"),
	}
	if kLinear > 0 {
		m.constIdx = glm.ConstantColumn(exog.Slice(0, n, 0, kLinear))
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With(log.ModelNameKey, "GLMGam", log.FamilyKey, family.Name())
	return m, nil
}

// NewLogitModel is a GAM for a binary response with the logit link.
func NewLogitModel(endog []float64, linear mat.Matrix, s smooth.Smoother, alpha Alpha, opts ...ModelOption) (*Model, error) {
	return NewModel(endog, linear, s, alpha, glm.NewBinomial(glm.LogitLink{}), opts...)
}

func (m *Model) addOffset(v []float64) {
	if m.offset == nil {
		m.offset = make([]float64, len(v))
	}
	for i := range v {
		m.offset[i] += v[i]
	}
}

// Endog returns the response.
func (m *Model) Endog() []float64 { return m.endog }

// Exog returns the full design matrix.
func (m *Model) Exog() *mat.Dense { return m.exog }

// Offset returns the offset including log exposure, nil when none was given.
func (m *Model) Offset() []float64 { return m.offset }

// KLinear returns the number of unpenalized linear columns.
func (m *Model) KLinear() int { return m.kLinear }

// ConstIdx returns the index of the constant column in the linear block, or -1.
func (m *Model) ConstIdx() int { return m.constIdx }

// Smoother returns the smooth terms.
func (m *Model) Smoother() smooth.Smoother { return m.smoother }

// Penalty returns the penalty generator.
func (m *Model) Penalty() *smooth.Penalty { return m.penalty }

// Alpha returns a copy of the model's penalty weights.
func (m *Model) Alpha() []float64 { return append([]float64(nil), m.alpha...) }

// Family returns the GLM family.
func (m *Model) Family() glm.Family { return m.family }

// NumTerms returns the number of smooth terms.
func (m *Model) NumTerms() int { return m.smoother.NumTerms() }

// NObs returns the number of observations.
func (m *Model) NObs() int { return len(m.endog) }

// TermIndices returns the design columns of smooth term i.
func (m *Model) TermIndices(i int) []int {
	start, end := m.smoother.Columns(i)
	idx := make([]int, 0, end-start)
	for j := start; j < end; j++ {
		idx = append(idx, m.kLinear+j)
	}
	return idx
}
