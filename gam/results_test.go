package gam

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

func TestEDFShrinksWithPenalty(t *testing.T) {
	m := sineModel(t, 1)
	prev := math.Inf(1)
	for _, a := range []float64{0.01, 1, 100} {
		res, err := m.FitAlpha(UniformAlpha(a))
		require.NoError(t, err)
		edf := res.EDFTotal()
		assert.Less(t, edf, prev, "alpha=%g", a)
		assert.GreaterOrEqual(t, edf, 1.0)
		assert.LessOrEqual(t, edf, 11.0)
		assert.InDelta(t, edf, res.HatMatrixTrace(), 1e-8)
		assert.InDelta(t, edf-1, res.DFModel(), 1e-12)
		assert.InDelta(t, float64(m.NObs())-edf, res.DFResid(), 1e-12)
		prev = edf
	}
}

func TestHatMatrixDiag(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)
	hd := res.HatMatrixDiag()
	require.Len(t, hd, m.NObs())
	for _, h := range hd {
		assert.Greater(t, h, 0.0)
		assert.Less(t, h, 1.0)
	}
	// the returned slice is a copy
	hd[0] = 42
	assert.NotEqual(t, 42.0, res.HatMatrixDiag()[0])
}

func TestCriteria(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)

	for _, name := range []string{"aic", "bic", "gcv", "cv"} {
		c, err := ParseCriterion(name)
		require.NoError(t, err)
		v, err := res.Criterion(c)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
	}
	assert.Greater(t, res.GCV(), 0.0)
	assert.Greater(t, res.CV(), 0.0)

	edf := res.EDFTotal()
	assert.InDelta(t, -2*res.LLF()+2*edf, res.AIC(), 1e-9)
	assert.InDelta(t, -2*res.LLF()+math.Log(float64(m.NObs()))*edf, res.BIC(), 1e-9)

	// GCV uses the scale over the squared fraction of residual degrees of freedom
	d := 1 - res.HatMatrixTrace()/float64(m.NObs())
	assert.InDelta(t, res.Scale()/(d*d), res.GCV(), 1e-12)

	_, err = ParseCriterion("mallows")
	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &inv))
	_, err = res.Criterion(Criterion("mallows"))
	assert.True(t, errors.As(err, &inv))
}

func TestResultsString(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)
	s := res.String()
	assert.True(t, strings.HasPrefix(s, "GLMGam Gaussian(identity): n=200"))
	assert.Contains(t, s, "converged=true")
}

func TestPredictOnTrainingData(t *testing.T) {
	x, _, _ := sineData()
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)

	pred, err := res.Predict(ones(len(x)), [][]float64{x}, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, res.Mu(), pred, 1e-10)

	// points beyond the training range are clamped to the boundary
	out, err := res.Predict(ones(2), [][]float64{{-1, 10}}, nil)
	require.NoError(t, err)
	edge, err := res.Predict(ones(2), [][]float64{{x[0], x[len(x)-1]}}, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, edge, out, 1e-12)

	var dim *errors.DimensionError
	_, err = res.Predict(nil, [][]float64{x}, nil)
	assert.True(t, errors.As(err, &dim))
	_, err = res.Predict(ones(3), [][]float64{x}, nil)
	assert.True(t, errors.As(err, &dim))
}

func TestPartialValues(t *testing.T) {
	x, _, truth := sineData()
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)

	fitted, se, err := res.PartialValues(0, true)
	require.NoError(t, err)
	require.Len(t, fitted, len(x))
	require.Len(t, se, len(x))
	for i := range fitted {
		assert.Greater(t, se[i], 0.0)
		// with the intercept the partial effect is the whole mean here
		assert.InDelta(t, truth[i], fitted[i], 0.35)
	}

	noConst, _, err := res.PartialValues(0, false)
	require.NoError(t, err)
	c := res.Params()[0]
	for i := range fitted {
		assert.InDelta(t, fitted[i]-c, noConst[i], 1e-10)
	}

	_, _, err = res.PartialValues(1, false)
	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &inv))
}

func TestSignificance(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)

	wt, err := res.TestSignificance(0)
	require.NoError(t, err)
	assert.Equal(t, 0, wt.Term)
	assert.Greater(t, wt.Statistic, 0.0)
	assert.Less(t, wt.PValue, 1e-6)

	var df float64
	for _, v := range res.EDF()[1:] {
		df += v
	}
	assert.InDelta(t, df, wt.DF, 1e-12)

	_, err = res.TestSignificance(-1)
	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(err, &inv))
}

func TestPlotPartial(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)

	p, err := res.PlotPartial(0, PartialPlotOptions{SE: true, Residuals: true, IncludeConstant: true})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Partial effect of x", p.Title.Text)

	path := filepath.Join(t.TempDir(), "partial.png")
	require.NoError(t, res.SavePartialPlot(path, 0, DefaultPartialPlotOptions(), 4*vg.Inch, 3*vg.Inch))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = res.PlotPartial(3, DefaultPartialPlotOptions())
	assert.Error(t, err)
}

func TestResidWorkingGaussian(t *testing.T) {
	m := sineModel(t, 1)
	res, err := m.Fit()
	require.NoError(t, err)
	assert.InDeltaSlice(t, res.ResidResponse(), res.ResidWorking(), 1e-12)
}

func TestPenalizedDevianceGradVanishesAtFit(t *testing.T) {
	tests := []struct {
		name string
		fit  func(t *testing.T) *Results
		tol  float64
	}{
		{"gaussian", func(t *testing.T) *Results {
			res, err := sineModel(t, 1).Fit()
			require.NoError(t, err)
			return res
		}, 1e-6},
		{"poisson", func(t *testing.T) *Results {
			res, err := poissonModel(t, UniformAlpha(0.5)).Fit()
			require.NoError(t, err)
			return res
		}, 1e-4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.fit(t)
			require.True(t, res.Converged())
			grad, err := res.PenalizedDevianceGrad()
			require.NoError(t, err)
			require.Len(t, grad, len(res.Params()))
			for j, g := range grad {
				assert.InDelta(t, 0.0, g, tt.tol, "coefficient %d", j)
			}
		})
	}

	// moving away from the optimum raises the objective along the gradient
	res, err := sineModel(t, 1).Fit()
	require.NoError(t, err)
	at, err := res.PenalizedDeviance()
	require.NoError(t, err)
	m := res.Model()
	shifted := res.Params()
	shifted[3] += 0.1
	moved, err := m.FitAlpha(UniformAlpha(1), WithStartParams(shifted), WithMaxIter(0))
	require.NoError(t, err)
	pd, err := m.penalty.Func(shifted, []float64{1})
	require.NoError(t, err)
	assert.Greater(t, moved.Deviance()+2*pd, at)
}
