package gam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigam/core/minimize"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
)

func TestSelectPenaltyWeightGCV(t *testing.T) {
	tl, _ := log.NewTestLogger(log.LevelDebug)
	m := sineModel(t, 1, WithLogger(tl))

	sel, err := m.SelectPenaltyWeight("gcv", WithSelectMethod(MethodNelderMead))
	require.NoError(t, err)
	require.NotNil(t, sel.Result)
	require.NotEmpty(t, sel.Trace)
	require.Len(t, sel.Alpha, 1)
	assert.Greater(t, sel.Alpha[0], 0.0)

	// the search starts at alpha = 1 and never ends worse
	assert.InDelta(t, 1.0, sel.Trace[0].Alpha[0], 1e-12)
	assert.LessOrEqual(t, sel.Result.F, sel.Trace[0].Criterion)
	assert.Equal(t, len(sel.Trace), sel.Result.Evaluations)

	res, err := m.FitAlpha(AlphaVector(sel.Alpha...))
	require.NoError(t, err)
	assert.InDelta(t, sel.Result.F, res.GCV(), 1e-6)

	assert.Equal(t, len(sel.Trace), tl.CountMessages("penalty weight evaluation"))
	assert.Equal(t, 1, tl.CountMessages("penalty weight selection finished"))
	assert.True(t, tl.ContainsField(log.OperationKey, log.OperationSelect))
	assert.True(t, tl.ContainsField(log.CriterionKey, "gcv"))
}

func TestSelectPenaltyWeightMethods(t *testing.T) {
	m := sineModel(t, 1)
	for _, method := range []string{MethodMinimize, MethodBasinHopping} {
		t.Run(method, func(t *testing.T) {
			sel, err := m.SelectPenaltyWeight("gcv",
				WithSelectMethod(method),
				WithSelectSettings(minimize.Settings{Hops: 2}),
				WithBasinHoppingSeed(11),
			)
			require.NoError(t, err)
			require.Len(t, sel.Alpha, 1)
			assert.LessOrEqual(t, sel.Result.F, sel.Trace[0].Criterion)
		})
	}
}

func TestSelectBasinHoppingIsDeterministic(t *testing.T) {
	m := sineModel(t, 1)
	run := func() *Selection {
		sel, err := m.SelectPenaltyWeight("bic",
			WithSelectSettings(minimize.Settings{Hops: 2, Seed: 5}),
		)
		require.NoError(t, err)
		return sel
	}
	a, b := run(), run()
	assert.Equal(t, a.Alpha, b.Alpha)
	assert.Equal(t, a.Result.F, b.Result.F)
	assert.Equal(t, len(a.Trace), len(b.Trace))
}

func TestSelectPenaltyWeightRejectsBadArguments(t *testing.T) {
	m := sineModel(t, 1)
	tests := []struct {
		name      string
		criterion string
		opts      []SelectOption
		param     string
	}{
		{"unknown criterion", "r2", nil, "criterion"},
		{"unknown method", "gcv", []SelectOption{WithSelectMethod("lbfgs")}, "method"},
		{"start length", "gcv", []SelectOption{WithStartLogAlpha(0, 0)}, "start_params"},
		{"bad config", "gcv", []SelectOption{WithSelectFitOptions(WithTol(-1, 0))}, "tol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := m.SelectPenaltyWeight(tt.criterion, tt.opts...)
			assert.Nil(t, sel)
			var inv *errors.InvalidArgumentError
			require.True(t, errors.As(err, &inv))
			assert.Equal(t, tt.param, inv.Param)
		})
	}
}

func TestSelectPenaltyWeightAbortsOnFitError(t *testing.T) {
	m := sineModel(t, 1)
	sel, err := m.SelectPenaltyWeight("gcv",
		WithSelectMethod(MethodNelderMead),
		WithSelectFitOptions(WithMaxIter(0)),
	)
	require.Error(t, err)
	var inv *errors.InvalidArgumentError
	require.True(t, errors.As(err, &inv))
	require.NotNil(t, sel)
	assert.Empty(t, sel.Trace)
	assert.Nil(t, sel.Result)
}

func TestSelectWarmStart(t *testing.T) {
	m := sineModel(t, 1)
	ref, err := m.Fit()
	require.NoError(t, err)

	sel, err := m.SelectPenaltyWeight("gcv",
		WithSelectMethod(MethodNelderMead),
		WithSelectStartParams(ref.Params()),
		WithStartLogAlpha(0),
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, ref.Params(), sel.Trace[0].Params, 1e-8)
}

func TestAlphaFromLogClamps(t *testing.T) {
	got := alphaFromLog([]float64{1000, -1000, 0.5, math.Inf(1)})
	assert.Equal(t, math.Exp(maxLogAlpha), got[0])
	assert.Equal(t, math.Exp(-maxLogAlpha), got[1])
	assert.Equal(t, math.Exp(0.5), got[2])
	assert.Equal(t, math.Exp(maxLogAlpha), got[3])
}

func TestSelectFarOutStartStaysFinite(t *testing.T) {
	m := sineModel(t, 1)
	sel, err := m.SelectPenaltyWeight("gcv",
		WithSelectMethod(MethodNelderMead),
		WithStartLogAlpha(1000),
		WithSelectSettings(minimize.Settings{MajorIterations: 5}),
	)
	require.NoError(t, err)
	require.NotEmpty(t, sel.Trace)
	for _, e := range sel.Trace {
		assert.Equal(t, math.Exp(maxLogAlpha), e.Alpha[0])
		assert.False(t, math.IsInf(e.Criterion, 0) || math.IsNaN(e.Criterion))
	}
	assert.Equal(t, []float64{math.Exp(maxLogAlpha)}, sel.Alpha)
}
