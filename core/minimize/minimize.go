// Package minimize runs derivative-free and quasi-Newton searches over
// objectives that may fail. The first objective error aborts the search and
// is returned to the caller unchanged together with the best point so far.
package minimize

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Objective evaluates the function at x. A non-nil error stops the search.
type Objective func(x []float64) (float64, error)

// Result is the outcome of a search.
type Result struct {
	Method      string
	X           []float64
	F           float64
	Status      optimize.Status
	Iterations  int
	Evaluations int
	// Converged is false when an iteration or evaluation limit ended the search.
	Converged bool
}

// Settings bounds a search. Zero fields take the method's default.
type Settings struct {
	MajorIterations int
	FuncEvaluations int
	// FuncTol is the absolute change of the best value below which the
	// search counts as converged.
	FuncTol float64
	// Hops, StepSize, Temperature and Seed configure BasinHopping.
	Hops        int
	StepSize    float64
	Temperature float64
	Seed        uint64

	// silent suppresses limit warnings of inner searches.
	silent bool
}

// guard records the first objective error. Later calls return +Inf without
// evaluating so the optimizer can unwind.
type guard struct {
	obj   Objective
	err   error
	evals int
}

func (g *guard) fn(x []float64) float64 {
	if g.err != nil {
		return math.Inf(1)
	}
	g.evals++
	v, err := g.obj(x)
	if err != nil {
		g.err = err
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

// abortConverger ends the search with optimize.Failure once the objective
// has failed.
type abortConverger struct {
	g     *guard
	inner optimize.Converger
}

func (c *abortConverger) Init(dim int) { c.inner.Init(dim) }

func (c *abortConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.g.err != nil {
		return optimize.Failure
	}
	return c.inner.Converged(loc)
}

func run(g *guard, name string, x0 []float64, s Settings, method optimize.Method, withGrad bool) (*Result, error) {
	if len(x0) == 0 {
		return nil, errors.NewInvalidArgumentError("minimize."+name, "x0", "start point must not be empty", x0)
	}
	if err := errors.CheckNumericalStability("minimize."+name, x0); err != nil {
		return nil, err
	}

	p := optimize.Problem{Func: g.fn}
	if withGrad {
		p.Grad = func(grad, x []float64) {
			fd.Gradient(grad, g.fn, x, &fd.Settings{Formula: fd.Central})
		}
	}
	settings := &optimize.Settings{
		MajorIterations: s.MajorIterations,
		FuncEvaluations: s.FuncEvaluations,
		Converger: &abortConverger{g: g, inner: &optimize.FunctionConverge{
			Absolute:   s.FuncTol,
			Iterations: 20,
		}},
	}

	if withGrad {
		settings.GradientThreshold = 1e-6
	}

	start := append([]float64(nil), x0...)
	rslt, err := optimize.Minimize(p, start, settings, method)
	if g.err != nil {
		return partial(name, rslt, g), g.err
	}
	if err != nil {
		if rslt == nil {
			return nil, errors.Wrapf(err, "minimize.%s", name)
		}
		return partial(name, rslt, g), errors.Wrapf(err, "minimize.%s", name)
	}
	out := partial(name, rslt, g)
	switch rslt.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		if s.silent {
			break
		}
		errors.Warn(errors.NewConvergenceWarning(name, rslt.Stats.MajorIterations, rslt.Status.String()))
	case optimize.Failure:
		return out, errors.NewNumericalError("minimize."+name, "optimizer reported failure", []float64{rslt.F})
	default:
		out.Converged = true
	}
	return out, nil
}

func partial(name string, rslt *optimize.Result, g *guard) *Result {
	if rslt == nil {
		return &Result{Method: name, Evaluations: g.evals, Status: optimize.Failure}
	}
	return &Result{
		Method:      name,
		X:           append([]float64(nil), rslt.X...),
		F:           rslt.F,
		Status:      rslt.Status,
		Iterations:  rslt.Stats.MajorIterations,
		Evaluations: g.evals,
	}
}

// NelderMead minimizes obj with the downhill simplex method.
// Defaults: 1000 iterations, 2000 evaluations, FuncTol 1e-4.
func NelderMead(obj Objective, x0 []float64, s Settings) (*Result, error) {
	if s.MajorIterations == 0 {
		s.MajorIterations = 1000
	}
	if s.FuncEvaluations == 0 {
		s.FuncEvaluations = 2000
	}
	if s.FuncTol == 0 {
		s.FuncTol = 1e-4
	}
	return run(&guard{obj: obj}, "NelderMead", x0, s, &optimize.NelderMead{}, false)
}

// Minimize minimizes obj with BFGS using a central finite-difference gradient.
// Defaults: 1000 iterations, FuncTol 1e-8.
func Minimize(obj Objective, x0 []float64, s Settings) (*Result, error) {
	if s.MajorIterations == 0 {
		s.MajorIterations = 1000
	}
	if s.FuncTol == 0 {
		s.FuncTol = 1e-8
	}
	return run(&guard{obj: obj}, "BFGS", x0, s, &optimize.BFGS{}, true)
}
