package minimize

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// BasinHopping alternates random uniform perturbations of the current point
// with local NelderMead searches and accepts moves by the Metropolis rule.
// Defaults: 10 hops, step 0.5, temperature 1, local searches of 100
// iterations and 500 evaluations.
func BasinHopping(obj Objective, x0 []float64, s Settings) (*Result, error) {
	if s.Hops == 0 {
		s.Hops = 10
	}
	if s.StepSize == 0 {
		s.StepSize = 0.5
	}
	if s.Temperature == 0 {
		s.Temperature = 1
	}
	local := Settings{
		MajorIterations: s.MajorIterations,
		FuncEvaluations: s.FuncEvaluations,
		FuncTol:         s.FuncTol,
		silent:          true,
	}
	if local.MajorIterations == 0 {
		local.MajorIterations = 100
	}
	if local.FuncEvaluations == 0 {
		local.FuncEvaluations = 500
	}
	if local.FuncTol == 0 {
		local.FuncTol = 1e-4
	}

	g := &guard{obj: obj}
	src := rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)
	step := distuv.Uniform{Min: -s.StepSize, Max: s.StepSize, Src: src}
	accept := rand.New(src)

	cur, err := run(g, "BasinHopping", x0, local, &optimize.NelderMead{}, false)
	if err != nil {
		return withEvals(cur, g), err
	}
	best := *cur
	iterations := cur.Iterations
	for hop := 0; hop < s.Hops; hop++ {
		trial := make([]float64, len(cur.X))
		for j := range trial {
			trial[j] = cur.X[j] + step.Rand()
		}
		next, err := run(g, "BasinHopping", trial, local, &optimize.NelderMead{}, false)
		if err != nil {
			best.Iterations = iterations
			return withEvals(&best, g), err
		}
		iterations += next.Iterations
		if next.F < cur.F || accept.Float64() < math.Exp(-(next.F-cur.F)/s.Temperature) {
			cur = next
		}
		if next.F < best.F {
			best = *next
		}
	}
	best.Iterations = iterations
	best.Converged = true
	return withEvals(&best, g), nil
}

func withEvals(r *Result, g *guard) *Result {
	if r == nil {
		return nil
	}
	r.Method = "BasinHopping"
	r.Evaluations = g.evals
	return r
}
