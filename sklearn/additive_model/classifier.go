package additive_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/metrics"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// GAMClassifier is a logistic GAM for a binary 0/1 response.
type GAMClassifier struct {
	*estimator
}

var (
	_ model.Estimator      = (*GAMClassifier)(nil)
	_ model.WeightExporter = (*GAMClassifier)(nil)
)

// NewGAMClassifier creates a logistic GAM classifier.
func NewGAMClassifier(opts ...Option) *GAMClassifier {
	c := &GAMClassifier{estimator: newEstimator("GAMClassifier", "binomial", opts)}
	c.family = "binomial"
	return c
}

// Fit trains the model. y must hold 0 or 1.
func (c *GAMClassifier) Fit(X, y mat.Matrix) error {
	return c.FitWeighted(X, y, nil)
}

// FitWeighted trains the model with per-observation data weights w.
func (c *GAMClassifier) FitWeighted(X, y mat.Matrix, w []float64) error {
	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		if v := y.At(i, 0); v != 0 && v != 1 {
			return errors.NewValueError("GAMClassifier.Fit", "labels must be 0 or 1")
		}
	}
	return c.fit(X, y, w)
}

// PredictProba returns P(y = 1) as an n×1 matrix.
func (c *GAMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.mean(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(p), 1, p), nil
}

// Predict returns the class with the larger probability as an n×1 matrix.
func (c *GAMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.mean(X, "Predict")
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(p), 1, nil)
	for i, v := range p {
		if v >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// Score returns the accuracy of Predict.
func (c *GAMClassifier) Score(X, y mat.Matrix) (float64, error) {
	return c.ScoreWeighted(X, y, nil)
}

// ScoreWeighted returns the accuracy of Predict weighted by w.
func (c *GAMClassifier) ScoreWeighted(X, y mat.Matrix, w []float64) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	predRows, _ := pred.Dims()
	yTrue := mat.NewVecDense(rows, mat.Col(nil, 0, y))
	yPred := mat.NewVecDense(predRows, mat.Col(nil, 0, pred))
	return metrics.Accuracy(yTrue, yPred, metrics.WithSampleWeight(w))
}

// GetParams returns the model's hyperparameters (scikit-learn compatible).
func (c *GAMClassifier) GetParams(deep bool) map[string]interface{} {
	return c.params()
}

// SetParams sets hyperparameters and discards any previous fit. The family
// stays binomial.
func (c *GAMClassifier) SetParams(params map[string]interface{}) error {
	if err := c.setParams(params); err != nil {
		return err
	}
	c.family = "binomial"
	return nil
}

// ExportWeights exports the coefficients, penalty weights and fit summary.
func (c *GAMClassifier) ExportWeights() (*model.ModelWeights, error) {
	return c.exportWeights()
}
