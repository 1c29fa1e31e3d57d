package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Regressor", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	s.SetFitted(3, 200)
	assert.NoError(t, s.RequireFitted("Regressor", "Predict"))
	nFeatures, nSamples := s.GetDimensions()
	assert.Equal(t, 3, nFeatures)
	assert.Equal(t, 200, nSamples)

	var dimErr *errors.DimensionError
	require.True(t, errors.As(s.RequireFeatures("Regressor.Predict", 2), &dimErr))
	assert.Equal(t, 3, dimErr.Expected)

	s.Reset()
	assert.Equal(t, ModelState{}, s.GetState())
}

func TestModelWeightsRoundTrip(t *testing.T) {
	mw := &ModelWeights{
		ModelType:       "GLMGam",
		Version:         "1.0",
		Coefficients:    []float64{0.1, -0.4, 1.2},
		Alpha:           []float64{2.5},
		EDF:             []float64{1, 0.8, 0.6},
		Hyperparameters: map[string]interface{}{"degree": 3.0},
		Metadata:        map[string]interface{}{"gcv": 0.04},
		IsFitted:        true,
	}
	require.NoError(t, mw.Validate())

	data, err := mw.ToJSON()
	require.NoError(t, err)

	var back ModelWeights
	require.NoError(t, back.FromJSON(data))
	assert.Equal(t, mw.Coefficients, back.Coefficients)
	assert.Equal(t, mw.Alpha, back.Alpha)
	assert.Equal(t, mw.Hyperparameters, back.Hyperparameters)

	clone := mw.Clone()
	clone.Coefficients[0] = 99
	assert.Equal(t, 0.1, mw.Coefficients[0])
}

func TestModelWeightsValidate(t *testing.T) {
	tests := []struct {
		name string
		mw   ModelWeights
	}{
		{"missing type", ModelWeights{Version: "1", IsFitted: true, Coefficients: []float64{1}}},
		{"missing version", ModelWeights{ModelType: "GLMGam", IsFitted: true, Coefficients: []float64{1}}},
		{"fitted without coefficients", ModelWeights{ModelType: "GLMGam", Version: "1", IsFitted: true}},
		{"edf length", ModelWeights{ModelType: "GLMGam", Version: "1", IsFitted: true, Coefficients: []float64{1, 2}, EDF: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.mw.Validate())
		})
	}
}
