package additive_model

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// twoFeatureData draws y = sin(2πx₀) + 2x₁² + noise.
func twoFeatureData(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	src := rand.NewPCG(seed, seed+1)
	rng := rand.New(src)
	noise := distuv.Normal{Sigma: 0.1, Src: src}
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0, x1 := rng.Float64(), rng.Float64()
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, math.Sin(2*math.Pi*x0)+2*x1*x1+noise.Rand())
	}
	return X, y
}

func TestGAMRegressorFitPredict(t *testing.T) {
	X, y := twoFeatureData(300, 1)
	// sin(2πx) has a large integrated curvature, so the weight stays small
	reg := NewGAMRegressor(WithNSplines(8), WithAlpha(1e-3))
	assert.False(t, reg.IsFitted())
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	rows, cols := pred.Dims()
	assert.Equal(t, 300, rows)
	assert.Equal(t, 1, cols)

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)

	require.NotNil(t, reg.Results())
	assert.Len(t, reg.Results().Params(), 1+2*8)
	assert.Nil(t, reg.Selection())
}

func TestGAMRegressorSampleWeights(t *testing.T) {
	X, y := twoFeatureData(300, 1)
	corrupt := mat.DenseCopyOf(y)
	w := make([]float64, 300)
	for i := range w {
		w[i] = 1
		if i%30 == 0 {
			corrupt.Set(i, 0, y.At(i, 0)+50)
			w[i] = 0
		}
	}

	plain := NewGAMRegressor(WithNSplines(8), WithAlpha(1e-3))
	require.NoError(t, plain.Fit(X, corrupt))
	weighted := NewGAMRegressor(WithNSplines(8), WithAlpha(1e-3))
	require.NoError(t, weighted.FitWeighted(X, corrupt, w))

	// zero-weight outliers neither move the fit nor count in the score
	score, err := weighted.ScoreWeighted(X, corrupt, w)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
	plainScore, err := plain.ScoreWeighted(X, corrupt, w)
	require.NoError(t, err)
	assert.Less(t, plainScore, score)

	d2, err := weighted.DevianceScore(X, corrupt, w)
	require.NoError(t, err)
	assert.InDelta(t, score, d2, 1e-12)

	var dim *errors.DimensionError
	_, err = weighted.ScoreWeighted(X, corrupt, w[:10])
	assert.True(t, errors.As(err, &dim))
}

func TestGAMRegressorNotFitted(t *testing.T) {
	X, _ := twoFeatureData(10, 2)
	reg := NewGAMRegressor()
	_, err := reg.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	_, err = reg.ExportWeights()
	assert.True(t, errors.As(err, &nf))
}

func TestGAMRegressorDimensionChecks(t *testing.T) {
	X, y := twoFeatureData(100, 3)
	reg := NewGAMRegressor(WithNSplines(6))
	var dim *errors.DimensionError
	assert.True(t, errors.As(reg.Fit(X, mat.NewDense(99, 1, nil)), &dim))

	require.NoError(t, reg.Fit(X, y))
	_, err := reg.Predict(mat.NewDense(5, 3, nil))
	assert.True(t, errors.As(err, &dim))
}

func TestGAMRegressorFamilies(t *testing.T) {
	src := rand.NewPCG(4, 5)
	rng := rand.New(src)
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64()
		X.Set(i, 0, x)
		y.Set(i, 0, distuv.Poisson{Lambda: math.Exp(1 + math.Sin(2*math.Pi*x)), Src: src}.Rand())
	}
	reg := NewGAMRegressor(WithFamily("poisson"), WithNSplines(6))
	require.NoError(t, reg.Fit(X, y))
	assert.Equal(t, "Poisson(log)", reg.Results().Family().Name())
	pred, err := reg.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.Greater(t, pred.At(i, 0), 0.0)
	}

	d2, err := reg.DevianceScore(X, y, nil)
	require.NoError(t, err)
	assert.Greater(t, d2, 0.0)
	assert.Less(t, d2, 1.0)

	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(NewGAMRegressor(WithFamily("tweedie")).Fit(X, y), &inv))
	assert.True(t, errors.As(NewGAMRegressor(WithFamily("binomial")).Fit(X, y), &inv))
}

func TestGAMRegressorSelection(t *testing.T) {
	X, y := twoFeatureData(200, 6)
	reg := NewGAMRegressor(WithNSplines(6), WithSelection("gcv", gam.MethodNelderMead))
	require.NoError(t, reg.Fit(X, y))
	sel := reg.Selection()
	require.NotNil(t, sel)
	assert.Len(t, sel.Alpha, 2)
	assert.Equal(t, sel.Alpha, reg.Results().Alpha())
	assert.InDelta(t, sel.Result.F, reg.Results().GCV(), 1e-6)
}

func TestGAMRegressorExportWeights(t *testing.T) {
	X, y := twoFeatureData(150, 7)
	reg := NewGAMRegressor(WithNSplines(5))
	require.NoError(t, reg.Fit(X, y))

	w, err := reg.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, "GAMRegressor", w.ModelType)
	assert.Len(t, w.Coefficients, 11)
	assert.Len(t, w.EDF, 11)
	assert.Equal(t, []float64{1, 1}, w.Alpha)
	assert.Equal(t, "const", w.Features[0])
	assert.Equal(t, "x1_s4", w.Features[10])
	assert.NotEmpty(t, w.Metadata["checksum"])

	data, err := w.ToJSON()
	require.NoError(t, err)
	var back model.ModelWeights
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, w.Coefficients, back.Coefficients)
	assert.Equal(t, 5.0, back.Hyperparameters["n_splines"])
}

func TestGAMRegressorParams(t *testing.T) {
	reg := NewGAMRegressor()
	p := reg.GetParams(true)
	assert.Equal(t, 10, p["n_splines"])
	assert.Equal(t, 3, p["degree"])
	assert.Equal(t, "gaussian", p["family"])
	assert.Equal(t, false, p["fitted"])

	// JSON-decoded numbers arrive as float64
	require.NoError(t, reg.SetParams(map[string]interface{}{"n_splines": 6.0, "alpha": 0.5, "family": "poisson"}))
	p = reg.GetParams(true)
	assert.Equal(t, 6, p["n_splines"])
	assert.Equal(t, 0.5, p["alpha"])
	assert.Equal(t, "poisson", p["family"])

	var inv *errors.InvalidArgumentError
	assert.True(t, errors.As(reg.SetParams(map[string]interface{}{"degree": "three"}), &inv))
	assert.True(t, errors.As(reg.SetParams(map[string]interface{}{"n_splines": 6.5}), &inv))

	assert.Contains(t, reg.String(), "GAMRegressor(n_splines=6")
}

func TestGAMClassifier(t *testing.T) {
	src := rand.NewPCG(8, 9)
	rng := rand.New(src)
	n := 400
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64()
		X.Set(i, 0, x)
		p := 1 / (1 + math.Exp(-4*math.Sin(2*math.Pi*x)))
		y.Set(i, 0, distuv.Bernoulli{P: p, Src: src}.Rand())
	}
	clf := NewGAMClassifier(WithNSplines(6))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		v := proba.At(i, 0)
		assert.True(t, v > 0 && v < 1)
	}
	acc, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.75)
	assert.Equal(t, "Binomial(logit)", clf.Results().Family().Name())

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	weighted, err := clf.ScoreWeighted(X, y, ones)
	require.NoError(t, err)
	assert.Equal(t, acc, weighted)

	require.NoError(t, clf.SetParams(map[string]interface{}{"family": "gaussian"}))
	assert.Equal(t, "binomial", clf.GetParams(true)["family"])
	assert.False(t, clf.IsFitted())

	var val *errors.ValueError
	bad := mat.NewDense(n, 1, nil)
	bad.Set(0, 0, 2)
	assert.True(t, errors.As(clf.Fit(X, bad), &val))
}
