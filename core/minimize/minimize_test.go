package minimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

func bowl(x []float64) (float64, error) {
	return (x[0]-1)*(x[0]-1) + 2*(x[1]+2)*(x[1]+2), nil
}

// wells has local minima near every multiple of 2π/3 and its global minimum
// near zero.
func wells(x []float64) (float64, error) {
	return 0.05*x[0]*x[0] - math.Cos(3*x[0]), nil
}

func TestNelderMeadBowl(t *testing.T) {
	res, err := NelderMead(bowl, []float64{0, 0}, Settings{FuncTol: 1e-12})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 1.0, res.X[0], 1e-3)
	assert.InDelta(t, -2.0, res.X[1], 1e-3)
	assert.Greater(t, res.Evaluations, 0)
	assert.Equal(t, "NelderMead", res.Method)
}

func TestMinimizeBowl(t *testing.T) {
	res, err := Minimize(bowl, []float64{3, 3}, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.X[0], 1e-4)
	assert.InDelta(t, -2.0, res.X[1], 1e-4)
	assert.InDelta(t, 0.0, res.F, 1e-8)
}

func TestBasinHoppingNeverWorseThanLocal(t *testing.T) {
	start := []float64{4.3}
	local, err := NelderMead(wells, start, Settings{})
	require.NoError(t, err)

	bh, err := BasinHopping(wells, start, Settings{Seed: 7})
	require.NoError(t, err)
	assert.LessOrEqual(t, bh.F, local.F+1e-3)
	assert.Equal(t, "BasinHopping", bh.Method)

	again, err := BasinHopping(wells, start, Settings{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, bh.X, again.X)
	assert.Equal(t, bh.Evaluations, again.Evaluations)
}

func TestObjectiveErrorAbortsSearch(t *testing.T) {
	boom := errors.NewPerfectSeparationError("test", 3)
	tests := []struct {
		name string
		run  func(Objective) (*Result, error)
	}{
		{"nm", func(o Objective) (*Result, error) { return NelderMead(o, []float64{0, 0}, Settings{}) }},
		{"bfgs", func(o Objective) (*Result, error) { return Minimize(o, []float64{0, 0}, Settings{}) }},
		{"basinhopping", func(o Objective) (*Result, error) { return BasinHopping(o, []float64{0, 0}, Settings{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			obj := func(x []float64) (float64, error) {
				calls++
				if calls == 5 {
					return 0, boom
				}
				return bowl(x)
			}
			res, err := tt.run(obj)
			require.Error(t, err)
			assert.True(t, errors.Is(err, boom))
			assert.Equal(t, 5, calls)
			if res != nil {
				assert.Equal(t, 5, res.Evaluations)
				assert.False(t, res.Converged)
			}
		})
	}
}

func TestEmptyStartRejected(t *testing.T) {
	_, err := NelderMead(bowl, nil, Settings{})
	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &inv))
}

func TestLimitsWarnWithoutError(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	tests := []struct {
		name     string
		settings Settings
		status   optimize.Status
	}{
		{"evaluations", Settings{FuncEvaluations: 10, FuncTol: 1e-12}, optimize.FunctionEvaluationLimit},
		{"iterations", Settings{MajorIterations: 3, FuncTol: 1e-12}, optimize.IterationLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warned = nil
			res, err := NelderMead(bowl, []float64{5, 5}, tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.False(t, res.Converged)
			require.Len(t, warned, 1)
			var cw *errors.ConvergenceWarning
			assert.True(t, errors.As(warned[0], &cw))
		})
	}
}
