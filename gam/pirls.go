package gam

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/linear"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
)

// History records one entry per P-IRLS iteration. The engine reads only the
// last two deviance values.
type History struct {
	// StartDeviance is the deviance at the starting mean.
	StartDeviance float64
	Deviance      []float64
	// PenalizedDeviance is D(β) + 2·βᵀS(α)β, the objective each step minimizes.
	PenalizedDeviance []float64
	Params            [][]float64
	Iterations        int
	Converged         bool
}

// fitContext is the scratch state of one P-IRLS run.
type fitContext struct {
	alpha   []float64
	cfg     FitConfig
	weights []float64
	// penalty is 2·S(α).
	penalty *mat.SymDense
	linPred []float64
	mu      []float64
	irlsW   []float64
	z       []float64
}

// Fit runs P-IRLS with the model's penalty weights.
func (m *Model) Fit(opts ...FitOption) (*Results, error) {
	return m.fitPIRLS(m.alpha, newFitOptions(opts))
}

// FitAlpha runs P-IRLS with the given penalty weights instead of the model's.
func (m *Model) FitAlpha(alpha Alpha, opts ...FitOption) (*Results, error) {
	a, err := alpha.Resolve(m.NumTerms())
	if err != nil {
		return nil, err
	}
	return m.fitPIRLS(a, newFitOptions(opts))
}

func (m *Model) newFitContext(alpha []float64, o fitOptions) (*fitContext, error) {
	const op = "gam.Fit"
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	n, p := m.exog.Dims()
	if o.start != nil {
		if len(o.start) != p {
			return nil, errors.NewDimensionError(op, p, len(o.start), 1)
		}
		if err := errors.CheckNumericalStability(op, o.start); err != nil {
			return nil, err
		}
	}
	if o.weights != nil {
		if len(o.weights) != n {
			return nil, errors.NewDimensionError(op, n, len(o.weights), 0)
		}
		for _, w := range o.weights {
			if w < 0 || math.IsNaN(w) {
				return nil, errors.NewInvalidArgumentError(op, "weights", "must be non-negative", w)
			}
		}
	}

	s, err := m.penalty.Matrix(alpha)
	if err != nil {
		return nil, err
	}
	s.ScaleSym(2, s)

	return &fitContext{
		alpha:   alpha,
		cfg:     o.config,
		weights: o.weights,
		penalty: s,
		linPred: make([]float64, n),
		mu:      make([]float64, n),
		irlsW:   make([]float64, n),
		z:       make([]float64, n),
	}, nil
}

func (c *fitContext) dataWeight(i int) float64 {
	if c.weights == nil {
		return 1
	}
	return c.weights[i]
}

// working fills the IRLS weights and the working response at the current mean.
func (m *Model) working(c *fitContext) {
	link := m.family.Link()
	for i, mu := range c.mu {
		c.irlsW[i] = c.dataWeight(i) * m.family.Weights(mu)
		c.z[i] = c.linPred[i] + link.Deriv(mu)*(m.endog[i]-mu)
		if m.offset != nil {
			c.z[i] -= m.offset[i]
		}
	}
}

func (m *Model) updateMean(c *fitContext, params []float64) {
	copy(c.linPred, glm.LinearPredictor(m.exog, params, m.offset))
	for i, eta := range c.linPred {
		c.mu[i] = m.family.Fitted(eta)
	}
}

func (m *Model) fitPIRLS(alpha []float64, o fitOptions) (*Results, error) {
	const op = "gam.Fit"
	started := time.Now()
	c, err := m.newFitContext(alpha, o)
	if err != nil {
		return nil, err
	}
	logger := m.logger.With(log.OperationKey, log.OperationFit)
	debug := logger.Enabled(context.Background(), log.LevelDebug)

	if o.start == nil {
		copy(c.mu, m.family.StartingMu(m.endog))
		link := m.family.Link()
		for i, mu := range c.mu {
			c.linPred[i] = link.Link(mu)
		}
	} else {
		m.updateMean(c, o.start)
	}

	hist := History{StartDeviance: m.family.Deviance(m.endog, c.mu, c.weights)}
	var (
		wls    *linear.WLSResult
		params = o.start
	)

	if c.cfg.MaxIter == 0 {
		if o.start == nil {
			return nil, errors.NewInvalidArgumentError(op, "start_params", "required when maxiter is 0", nil)
		}
		m.working(c)
		if wls, err = PenalizedWLS(c.z, m.exog, c.penalty, c.irlsW); err != nil {
			return nil, err
		}
		return m.newResults(c, append([]float64(nil), o.start...), wls.NormalizedCov, hist)
	}

	prevDev := hist.StartDeviance
	for it := 1; it <= c.cfg.MaxIter; it++ {
		m.working(c)
		if wls, err = PenalizedWLS(c.z, m.exog, c.penalty, c.irlsW); err != nil {
			return nil, err
		}
		params = wls.Params
		m.updateMean(c, params)

		dev := m.family.Deviance(m.endog, c.mu, c.weights)
		if err := errors.CheckScalar(op, dev); err != nil {
			return nil, err
		}
		pen, err := m.penalty.Func(params, c.alpha)
		if err != nil {
			return nil, err
		}
		hist.Deviance = append(hist.Deviance, dev)
		hist.PenalizedDeviance = append(hist.PenalizedDeviance, dev+2*pen)
		hist.Params = append(hist.Params, append([]float64(nil), params...))
		hist.Iterations = it
		if debug {
			logger.Debug("P-IRLS iteration",
				log.IterationKey, it,
				log.DevianceKey, dev,
				log.DevianceChangeKey, prevDev-dev,
			)
		}

		if glm.PerfectPrediction(m.endog, c.mu) {
			logger.Error("perfect separation",
				log.IterationKey, it,
				log.ErrorCodeKey, log.ErrorPerfectSeparation,
			)
			return nil, errors.NewPerfectSeparationError(op, it)
		}
		if it >= c.cfg.MinIter && glm.DevianceConverged(prevDev, dev, c.cfg.Tol, c.cfg.RTol) {
			hist.Converged = true
			break
		}
		prevDev = dev
	}

	if !hist.Converged {
		logger.Warn("P-IRLS did not converge",
			log.IterationKey, hist.Iterations,
			log.ErrorCodeKey, log.ErrorConvergence,
		)
		errors.Warn(errors.NewConvergenceWarning("P-IRLS", hist.Iterations, ""))
	}
	res, err := m.newResults(c, params, wls.NormalizedCov, hist)
	if err != nil {
		return nil, err
	}
	logger.Debug("P-IRLS finished",
		log.IterationKey, hist.Iterations,
		log.ConvergedKey, hist.Converged,
		log.EDFKey, res.EDFTotal(),
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return res, nil
}
