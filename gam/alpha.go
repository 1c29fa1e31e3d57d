package gam

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Alpha holds the penalty weights of the smooth terms, either one value
// broadcast to every term or one value per term. The zero value means no
// penalty on any term.
type Alpha struct {
	values  []float64
	uniform bool
	// set marks weights given through UniformAlpha or AlphaVector.
	set bool
}

// UniformAlpha applies the same weight to every smooth term.
func UniformAlpha(a float64) Alpha {
	return Alpha{values: []float64{a}, uniform: true, set: true}
}

// AlphaVector sets one weight per smooth term, in term order.
func AlphaVector(a ...float64) Alpha {
	return Alpha{values: append([]float64(nil), a...), set: true}
}

// Resolve expands the weights to k terms and validates them.
func (a Alpha) Resolve(k int) ([]float64, error) {
	const op = "gam.Alpha"
	var out []float64
	switch {
	case a.uniform:
		out = make([]float64, k)
		for i := range out {
			out[i] = a.values[0]
		}
	case !a.set:
		out = make([]float64, k)
	case len(a.values) != k:
		return nil, errors.NewInvalidArgumentError(op, "alpha",
			fmt.Sprintf("need %d weights, one per smooth term", k), a.values)
	default:
		out = append([]float64(nil), a.values...)
	}
	for _, v := range out {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewInvalidArgumentError(op, "alpha", "weights must be finite and non-negative", v)
		}
	}
	return out, nil
}

func (a Alpha) String() string {
	if !a.set {
		return "none"
	}
	if a.uniform {
		return fmt.Sprintf("uniform(%g)", a.values[0])
	}
	return fmt.Sprint(a.values)
}
