package main

import (
	"encoding/json"
	"os"

	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Config describes one gamfit run.
type Config struct {
	// FileNameX is an n×k .npy array, one smooth term per column.
	FileNameX string `json:"filename_x"`
	// FileNameY is a .npy array with n responses.
	FileNameY string `json:"filename_y"`
	// FileNameFitted receives the n×1 fitted means.
	FileNameFitted string `json:"filename_fitted"`
	// FileNameWeights receives the coefficients and fit summary as JSON.
	FileNameWeights string `json:"filename_weights"`
	// FileNamePlot is the partial plot path; the term name is appended to
	// the base name, e.g. partial_x0.png. Empty disables plotting.
	FileNamePlot string `json:"filename_plot"`
	// FileNameSampleWeight holds optional per-observation data weights.
	FileNameSampleWeight string `json:"filename_sample_weight"`

	Family    string    `json:"family"`
	Link      string    `json:"link"`
	NSplines  int       `json:"n_splines"`
	Degree    int       `json:"degree"`
	Alpha     []float64 `json:"alpha"`
	Criterion string    `json:"criterion"`
	Method    string    `json:"method"`
	Seed      uint64    `json:"seed"`

	Fit      gam.FitConfig `json:"fit"`
	LogLevel string        `json:"log_level"`
}

// defaultConfig is a Gaussian fit with ten cubic splines per term and alpha 1.
func defaultConfig() Config {
	return Config{
		Family:   "gaussian",
		NSplines: 10,
		Degree:   3,
		Alpha:    []float64{1},
		Method:   gam.MethodBasinHopping,
		Fit:      gam.DefaultFitConfig(),
		LogLevel: "info",
	}
}

// decodeConfig overlays the JSON file at path on the defaults.
func decodeConfig(path string) (Config, error) {
	cfg := defaultConfig()
	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "open config %s", path)
	}
	defer func() { _ = file.Close() }()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

// validate checks what the fit itself does not.
func (c Config) validate() error {
	const op = "gamfit.Config"
	switch {
	case c.FileNameX == "":
		return errors.NewInvalidArgumentError(op, "filename_x", "is required", c.FileNameX)
	case c.FileNameY == "":
		return errors.NewInvalidArgumentError(op, "filename_y", "is required", c.FileNameY)
	case len(c.Alpha) == 0:
		return errors.NewInvalidArgumentError(op, "alpha", "needs at least one value", c.Alpha)
	}
	return c.Fit.Validate()
}

// alpha broadcasts a single value to all terms.
func (c Config) alpha() gam.Alpha {
	if len(c.Alpha) == 1 {
		return gam.UniformAlpha(c.Alpha[0])
	}
	return gam.AlphaVector(c.Alpha...)
}
