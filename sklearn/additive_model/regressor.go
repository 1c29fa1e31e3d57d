package additive_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/metrics"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// GAMRegressor fits y = f₀ + Σⱼ fⱼ(xⱼ) with one penalized spline per feature.
type GAMRegressor struct {
	*estimator
}

var (
	_ model.Estimator      = (*GAMRegressor)(nil)
	_ model.WeightExporter = (*GAMRegressor)(nil)
)

// WithFamily selects the response family of a GAMRegressor: "gaussian",
// "poisson" or "gamma" (log link).
func WithFamily(family string) Option {
	return func(e *estimator) { e.family = family }
}

// NewGAMRegressor creates a Gaussian GAM regressor. WithFamily switches to
// "poisson" or "gamma".
func NewGAMRegressor(opts ...Option) *GAMRegressor {
	return &GAMRegressor{estimator: newEstimator("GAMRegressor", "gaussian", opts)}
}

// Fit trains the model on X (n×features) and y (n×1).
func (r *GAMRegressor) Fit(X, y mat.Matrix) error {
	return r.FitWeighted(X, y, nil)
}

// FitWeighted trains the model with per-observation data weights w.
func (r *GAMRegressor) FitWeighted(X, y mat.Matrix, w []float64) error {
	if r.family == "binomial" {
		return errors.NewInvalidArgumentError("GAMRegressor.Fit", "family", "use GAMClassifier for binary responses", r.family)
	}
	return r.fit(X, y, w)
}

// Predict returns the fitted mean response as an n×1 matrix.
func (r *GAMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	mu, err := r.mean(X, "Predict")
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(mu), 1, mu), nil
}

// Score returns the coefficient of determination R² of the prediction.
func (r *GAMRegressor) Score(X, y mat.Matrix) (float64, error) {
	return r.ScoreWeighted(X, y, nil)
}

// ScoreWeighted returns R² with the squares weighted by w.
func (r *GAMRegressor) ScoreWeighted(X, y mat.Matrix, w []float64) (float64, error) {
	yTrue, yPred, err := r.pair(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred, metrics.WithSampleWeight(w))
}

// DevianceScore returns the fraction of deviance explained, D², under the
// fitted family. It equals R² for the Gaussian family.
func (r *GAMRegressor) DevianceScore(X, y mat.Matrix, w []float64) (float64, error) {
	yTrue, yPred, err := r.pair(X, y)
	if err != nil {
		return 0, err
	}
	return metrics.D2Score(yTrue, yPred, r.results.Family(), metrics.WithSampleWeight(w))
}

func (r *GAMRegressor) pair(X, y mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	rows, _ := y.Dims()
	predRows, _ := pred.Dims()
	yTrue := mat.NewVecDense(rows, mat.Col(nil, 0, y))
	yPred := mat.NewVecDense(predRows, mat.Col(nil, 0, pred))
	return yTrue, yPred, nil
}

// GetParams returns the model's hyperparameters (scikit-learn compatible).
func (r *GAMRegressor) GetParams(deep bool) map[string]interface{} {
	return r.params()
}

// SetParams sets hyperparameters and discards any previous fit.
func (r *GAMRegressor) SetParams(params map[string]interface{}) error {
	return r.setParams(params)
}

// ExportWeights exports the coefficients, penalty weights and fit summary.
func (r *GAMRegressor) ExportWeights() (*model.ModelWeights, error) {
	return r.exportWeights()
}
