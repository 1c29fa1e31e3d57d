package glm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scigam/linear"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

func TestLinkRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		link Link
		mu   []float64
	}{
		{"identity", IdentityLink{}, []float64{-3, 0, 2.5}},
		{"log", LogLink{}, []float64{0.1, 1, 20}},
		{"logit", LogitLink{}, []float64{0.01, 0.5, 0.93}},
		{"inverse_power", InversePowerLink{}, []float64{0.2, 1, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mu := range tt.mu {
				eta := tt.link.Link(mu)
				assert.InDelta(t, mu, tt.link.Inverse(eta), 1e-12)

				// g'(mu) · dmu/deta = 1
				assert.InDelta(t, 1.0, tt.link.Deriv(mu)*tt.link.InverseDeriv(eta), 1e-9)

				const h = 1e-6
				fd := (tt.link.Link(mu+h) - tt.link.Link(mu-h)) / (2 * h)
				assert.InDelta(t, fd, tt.link.Deriv(mu), 1e-4*math.Max(1, math.Abs(fd)))
			}
		})
	}
}

func TestLogitInverseIsStable(t *testing.T) {
	l := LogitLink{}
	assert.Equal(t, 1.0, l.Inverse(800))
	assert.Equal(t, 0.0, l.Inverse(-800))
	assert.False(t, math.IsNaN(l.Link(0)))
	assert.False(t, math.IsInf(l.Link(1), 0))
}

func TestFamilyNamesAndDefaults(t *testing.T) {
	assert.Equal(t, "Gaussian(identity)", NewGaussian().Name())
	assert.Equal(t, "Binomial(logit)", NewBinomial().Name())
	assert.Equal(t, "Poisson(log)", NewPoisson().Name())
	assert.Equal(t, "Gamma(inverse_power)", NewGamma().Name())
	assert.Equal(t, "Gaussian(log)", NewGaussian(LogLink{}).Name())
	assert.True(t, NewBinomial().FixedScale())
	assert.False(t, NewGamma().FixedScale())
}

func TestDeviance(t *testing.T) {
	y := []float64{0, 1, 3}
	mu := []float64{0.5, 1, 2}

	assert.InDelta(t, 0.25+0+1, NewGaussian().Deviance(y, mu, nil), 1e-12)

	want := 2 * ((0 - (0 - 0.5)) + 0 + (3*math.Log(1.5) - 1))
	assert.InDelta(t, want, NewPoisson().Deviance(y, mu, nil), 1e-12)
	assert.InDelta(t, 2*want, NewPoisson().Deviance(y, mu, []float64{2, 2, 2}), 1e-12)

	b := NewBinomial()
	yb := []float64{0, 1}
	pb := []float64{0.2, 0.6}
	wantB := 2 * (-math.Log(0.8) - math.Log(0.6))
	assert.InDelta(t, wantB, b.Deviance(yb, pb, nil), 1e-12)
	// For 0/1 data the deviance is −2·llf.
	assert.InDelta(t, wantB, -2*b.LogLike(yb, pb, nil, 1), 1e-12)
}

func TestCheckResponse(t *testing.T) {
	assert.Error(t, NewBinomial().CheckResponse([]float64{0, 1.5}))
	assert.Error(t, NewPoisson().CheckResponse([]float64{-1}))
	assert.Error(t, NewGamma().CheckResponse([]float64{0}))
	assert.Error(t, NewGaussian().CheckResponse([]float64{math.NaN()}))
	assert.NoError(t, NewPoisson().CheckResponse([]float64{0, 4}))
}

func TestEstimateScale(t *testing.T) {
	g := NewGaussian()
	assert.InDelta(t, 2.0, EstimateScale(g, ScalePearson, 0, 20, 30, 10), 1e-12)
	assert.InDelta(t, 3.0, EstimateScale(g, ScaleDeviance, 0, 20, 30, 10), 1e-12)
	assert.InDelta(t, 0.7, EstimateScale(g, ScaleFixed, 0.7, 20, 30, 10), 1e-12)
	assert.Equal(t, 1.0, EstimateScale(NewPoisson(), ScalePearson, 0, 20, 30, 10))
	assert.Equal(t, 5.0, EstimateScale(NewPoisson(), ScaleFixed, 5, 20, 30, 10))

	est, ok := ParseScaleEstimator("dev")
	require.True(t, ok)
	assert.Equal(t, ScaleDeviance, est)
	_, ok = ParseScaleEstimator("robust")
	assert.False(t, ok)
}

func TestFitGaussianMatchesWLS(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	n := 80
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.SetRow(i, []float64{1, a, b})
		y[i] = 0.5 + 2*a - b + 0.3*rng.NormFloat64()
	}

	res, err := Fit(y, X, NewGaussian())
	require.NoError(t, err)
	ols, err := linear.WLS(y, X, nil)
	require.NoError(t, err)

	assert.True(t, res.Converged())
	assert.LessOrEqual(t, res.Iterations(), 3)
	assert.InDeltaSlice(t, ols.Params, res.Params(), 1e-10)
	assert.Equal(t, 2.0, res.DFModel())
	assert.Equal(t, float64(n-3), res.DFResid())
	assert.InDelta(t, ols.SSR/float64(n-3), res.Scale(), 1e-10)
	assert.InDelta(t, res.Deviance(), res.PearsonChi2(), 1e-10)

	// Gaussian llf with the MLE scale.
	s := ols.SSR / float64(n)
	wantLLF := -float64(n) / 2 * (math.Log(2*math.Pi*s) + 1)
	assert.InDelta(t, wantLLF, res.LLF(), 1e-8)
	assert.InDelta(t, -2*wantLLF+2*3, res.AIC(), 1e-8)
	assert.InDelta(t, -2*wantLLF+math.Log(float64(n))*3, res.BIC(), 1e-8)

	se := res.Bse()
	cov := res.CovParams()
	for j := range se {
		assert.InDelta(t, math.Sqrt(cov.At(j, j)), se[j], 1e-12)
	}
}

func TestFitPoissonRecoversCoefficients(t *testing.T) {
	src := rand.NewPCG(42, 42)
	rng := rand.New(src)
	n := 500
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.Float64()*2 - 1
		X.SetRow(i, []float64{1, x})
		y[i] = distuv.Poisson{Lambda: math.Exp(0.5 + 0.8*x), Src: src}.Rand()
	}

	res, err := Fit(y, X, NewPoisson())
	require.NoError(t, err)
	assert.True(t, res.Converged())
	assert.InDelta(t, 0.5, res.Params()[0], 0.15)
	assert.InDelta(t, 0.8, res.Params()[1], 0.2)
	assert.Equal(t, 1.0, res.Scale())

	pred, err := res.Predict(X, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, res.Mu(), pred, 1e-12)

	// Score equations of the canonical link: Xᵀ(y − μ) = 0.
	resid := res.ResidResponse()
	var s0, s1 float64
	for i := 0; i < n; i++ {
		s0 += resid[i]
		s1 += X.At(i, 1) * resid[i]
	}
	assert.InDelta(t, 0, s0, 1e-6)
	assert.InDelta(t, 0, s1, 1e-6)

	var dev float64
	for _, r := range res.ResidDeviance() {
		dev += r * r
	}
	assert.InDelta(t, res.Deviance(), dev, 1e-8)
}

func TestFitPerfectSeparation(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		1, -3,
		1, -2,
		1, -1,
		1, 1,
		1, 2,
		1, 3,
	})
	y := []float64{0, 0, 0, 1, 1, 1}
	_, err := Fit(y, X, NewBinomial(), WithMaxIter(200), WithTol(1e-14, 0))
	require.Error(t, err)
	var sep *errors.PerfectSeparationError
	assert.True(t, errors.As(err, &sep))
}

func TestFitMaxIterZero(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
	y := []float64{1, 3, 4, 7}

	_, err := Fit(y, X, NewGaussian(), WithMaxIter(0))
	var inv *errors.InvalidArgumentError
	require.True(t, errors.As(err, &inv))

	res, err := Fit(y, X, NewGaussian(), WithMaxIter(0), WithStartParams([]float64{1, 2}))
	require.NoError(t, err)
	assert.False(t, res.Converged())
	assert.Equal(t, 0, res.Iterations())
	assert.Equal(t, []float64{1, 2}, res.Params())
	assert.NotNil(t, res.NormalizedCov())
}

func TestFitOffsetShiftsIntercept(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3, 1, 4})
	y := []float64{1.1, 2.9, 5.2, 6.8, 9.1}
	base, err := Fit(y, X, NewGaussian())
	require.NoError(t, err)
	off := []float64{1, 1, 1, 1, 1}
	shifted, err := Fit(y, X, NewGaussian(), WithOffset(off))
	require.NoError(t, err)
	assert.InDelta(t, base.Params()[0]-1, shifted.Params()[0], 1e-10)
	assert.InDelta(t, base.Params()[1], shifted.Params()[1], 1e-10)
	assert.InDeltaSlice(t, base.Mu(), shifted.Mu(), 1e-10)
}

func TestFitDimensionErrors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 1, 1})
	_, err := Fit([]float64{1, 2}, X, NewGaussian())
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	_, err = Fit([]float64{1, 2, 3}, X, NewGaussian(), WithOffset([]float64{1}))
	assert.True(t, errors.As(err, &dim))
}

func TestConstantColumn(t *testing.T) {
	assert.Equal(t, 1, ConstantColumn(mat.NewDense(2, 2, []float64{0, 2, 1, 2})))
	assert.Equal(t, -1, ConstantColumn(mat.NewDense(2, 2, []float64{0, 0, 1, 0})))
}

func TestNewFamilyAndParseLink(t *testing.T) {
	tests := []struct {
		family, link, want string
	}{
		{"gaussian", "", "Gaussian(identity)"},
		{"binomial", "", "Binomial(logit)"},
		{"poisson", "identity", "Poisson(identity)"},
		{"gamma", "log", "Gamma(log)"},
		{"gamma", "", "Gamma(inverse_power)"},
	}
	for _, tt := range tests {
		fam, err := NewFamily(tt.family, tt.link)
		require.NoError(t, err)
		assert.Equal(t, tt.want, fam.Name())
	}

	var inv *errors.InvalidArgumentError
	_, err := NewFamily("tweedie", "")
	assert.True(t, errors.As(err, &inv))
	_, err = NewFamily("gaussian", "probit")
	assert.True(t, errors.As(err, &inv))

	l, err := ParseLink("logit")
	require.NoError(t, err)
	assert.Equal(t, LogitLink{}, l)
}
