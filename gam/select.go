package gam

import (
	"math"
	"time"

	"github.com/YuminosukeSato/scigam/core/minimize"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
)

// Outer optimization methods for SelectPenaltyWeight.
const (
	MethodNelderMead   = "nm"
	MethodBasinHopping = "basinhopping"
	MethodMinimize     = "minimize"
)

// maxLogAlpha bounds every coordinate of the search in log(alpha). Points
// outside are evaluated at the bound, so large optimizer steps stay finite.
const maxLogAlpha = 40

func alphaFromLog(x []float64) []float64 {
	alpha := make([]float64, len(x))
	for i, v := range x {
		alpha[i] = math.Exp(math.Max(-maxLogAlpha, math.Min(maxLogAlpha, v)))
	}
	return alpha
}

// SelectOption configures SelectPenaltyWeight.
type SelectOption func(*selectOptions)

type selectOptions struct {
	start       []float64
	startParams []float64
	method      string
	fitOpts     []FitOption
	settings    minimize.Settings
}

// WithStartLogAlpha sets the starting point in log(alpha), one value per
// smooth term. The default is zero, i.e. alpha = 1.
func WithStartLogAlpha(x ...float64) SelectOption {
	return func(o *selectOptions) { o.start = append([]float64(nil), x...) }
}

// WithSelectStartParams warm-starts the first P-IRLS fit.
func WithSelectStartParams(params []float64) SelectOption {
	return func(o *selectOptions) { o.startParams = params }
}

// WithSelectMethod picks "nm", "basinhopping" (default) or "minimize".
func WithSelectMethod(method string) SelectOption {
	return func(o *selectOptions) { o.method = method }
}

// WithSelectFitOptions passes options to every P-IRLS fit of the search.
func WithSelectFitOptions(opts ...FitOption) SelectOption {
	return func(o *selectOptions) { o.fitOpts = append(o.fitOpts, opts...) }
}

// WithSelectSettings overrides the outer optimizer limits.
func WithSelectSettings(s minimize.Settings) SelectOption {
	return func(o *selectOptions) {
		seed := o.settings.Seed
		o.settings = s
		if s.Seed == 0 {
			o.settings.Seed = seed
		}
	}
}

// WithBasinHoppingSeed seeds the random steps of basin hopping.
func WithBasinHoppingSeed(seed uint64) SelectOption {
	return func(o *selectOptions) { o.settings.Seed = seed }
}

// TraceEntry records one criterion evaluation of the search.
type TraceEntry struct {
	Alpha     []float64
	Criterion float64
	Params    []float64
	Converged bool
}

// Selection is the outcome of SelectPenaltyWeight.
type Selection struct {
	// Alpha is exp of the optimizer's best point, clamped to
	// [exp(-40), exp(40)].
	Alpha []float64
	// Result is the raw optimizer result over log(alpha).
	Result *minimize.Result
	Trace  []TraceEntry
}

// SelectPenaltyWeight searches log(alpha) for a local minimum of the
// criterion ("aic", "bic", "gcv" or "cv"). Each evaluation refits the model
// warm-started from the previous evaluation's coefficients. A failing fit
// aborts the search; its error is returned together with the trace so far.
func (m *Model) SelectPenaltyWeight(criterion string, opts ...SelectOption) (*Selection, error) {
	const op = "gam.SelectPenaltyWeight"
	o := selectOptions{method: MethodBasinHopping}
	for _, opt := range opts {
		opt(&o)
	}

	crit, err := ParseCriterion(criterion)
	if err != nil {
		return nil, err
	}
	var search func(minimize.Objective, []float64, minimize.Settings) (*minimize.Result, error)
	switch o.method {
	case MethodNelderMead:
		search = minimize.NelderMead
	case MethodBasinHopping:
		search = minimize.BasinHopping
	case MethodMinimize:
		search = minimize.Minimize
	default:
		return nil, errors.NewInvalidArgumentError(op, "method", "must be one of nm, basinhopping, minimize", o.method)
	}
	k := m.NumTerms()
	if o.start == nil {
		o.start = make([]float64, k)
	}
	if len(o.start) != k {
		return nil, errors.NewInvalidArgumentError(op, "start_params", "need one log(alpha) per smooth term", o.start)
	}
	base := newFitOptions(o.fitOpts)
	if err := base.config.Validate(); err != nil {
		return nil, err
	}

	logger := m.logger.With(log.OperationKey, log.OperationSelect, log.CriterionKey, string(crit), log.MethodKey, o.method)
	started := time.Now()
	sel := &Selection{}
	prev := o.startParams

	objective := func(x []float64) (float64, error) {
		alpha := alphaFromLog(x)
		fo := base
		fo.start = prev
		res, err := m.fitPIRLS(alpha, fo)
		if err != nil {
			logger.Error("penalty weight evaluation failed", err, log.AlphaKey, alpha)
			return 0, err
		}
		val, err := res.Criterion(crit)
		if err != nil {
			return 0, err
		}
		prev = res.Params()
		sel.Trace = append(sel.Trace, TraceEntry{
			Alpha:     alpha,
			Criterion: val,
			Params:    prev,
			Converged: res.Converged(),
		})
		logger.Debug("penalty weight evaluation",
			log.AlphaKey, alpha,
			log.CriterionValueKey, val,
			log.EDFKey, res.EDFTotal(),
		)
		return val, nil
	}

	result, err := search(objective, o.start, o.settings)
	if err != nil {
		return sel, err
	}
	sel.Result = result
	sel.Alpha = alphaFromLog(result.X)
	logger.Info("penalty weight selection finished",
		log.AlphaKey, sel.Alpha,
		log.CriterionValueKey, result.F,
		log.EvaluationsKey, result.Evaluations,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return sel, nil
}
