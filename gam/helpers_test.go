package gam

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/smooth"
)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	floats.Span(out, lo, hi)
	return out
}

func ones(n int) *mat.Dense {
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, 1)
	}
	return m
}

// sineData is y = sin(x) + N(0, 0.2²) on 200 points of [0, 2π].
func sineData() (x, y, truth []float64) {
	noise := distuv.Normal{Mu: 0, Sigma: 0.2, Src: rand.NewPCG(42, 42)}
	x = linspace(0, 2*math.Pi, 200)
	y = make([]float64, len(x))
	truth = make([]float64, len(x))
	for i, v := range x {
		truth[i] = math.Sin(v)
		y[i] = truth[i] + noise.Rand()
	}
	return x, y, truth
}

// sineModel has a constant column and a cubic B-spline term with 10 columns.
func sineModel(t *testing.T, alpha float64, opts ...ModelOption) *Model {
	t.Helper()
	x, y, _ := sineData()
	bs, err := smooth.NewBSplines("x", x, 10, 3)
	require.NoError(t, err)
	s, err := smooth.NewAdditiveSmoother(bs)
	require.NoError(t, err)
	m, err := NewModel(y, ones(len(y)), s, UniformAlpha(alpha), glm.NewGaussian(), opts...)
	require.NoError(t, err)
	return m
}

// poissonModel has two smooth terms and a constant column.
func poissonModel(t *testing.T, alpha Alpha, opts ...ModelOption) *Model {
	t.Helper()
	src := rand.NewPCG(7, 9)
	rng := rand.New(src)
	n := 300
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = rng.Float64()
		x2[i] = rng.Float64()
		lam := math.Exp(0.5 + 0.6*math.Sin(2*math.Pi*x1[i]) + 0.4*x2[i]*x2[i])
		y[i] = distuv.Poisson{Lambda: lam, Src: src}.Rand()
	}
	b1, err := smooth.NewBSplines("x1", x1, 6, 3)
	require.NoError(t, err)
	b2, err := smooth.NewBSplines("x2", x2, 5, 3)
	require.NoError(t, err)
	s, err := smooth.NewAdditiveSmoother(b1, b2)
	require.NoError(t, err)
	m, err := NewModel(y, ones(n), s, alpha, glm.NewPoisson(), opts...)
	require.NoError(t, err)
	return m
}
