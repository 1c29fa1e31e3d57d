// Package additive_model provides scikit-learn style estimators on top of
// the gam package. Every column of X becomes a cubic B-spline term and a
// constant column carries the intercept.
package additive_model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/core/minimize"
	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"github.com/YuminosukeSato/scigam/smooth"
)

const version = "1.0.0"

// Option configures an estimator.
type Option func(*estimator)

// WithNSplines sets the number of basis columns per feature.
func WithNSplines(n int) Option {
	return func(e *estimator) { e.nSplines = n }
}

// WithDegree sets the spline degree.
func WithDegree(d int) Option {
	return func(e *estimator) { e.degree = d }
}

// WithAlpha sets the penalty weight shared by all features.
func WithAlpha(a float64) Option {
	return func(e *estimator) { e.alpha = a }
}

// WithSelection picks the penalty weights by minimizing the criterion
// ("aic", "bic", "gcv" or "cv") with the given outer method. An empty
// criterion keeps the fixed alpha.
func WithSelection(criterion, method string) Option {
	return func(e *estimator) {
		e.criterion = criterion
		e.method = method
	}
}

// WithSeed seeds basin hopping during selection.
func WithSeed(seed uint64) Option {
	return func(e *estimator) { e.seed = seed }
}

// WithMaxIter sets the P-IRLS iteration cap.
func WithMaxIter(n int) Option {
	return func(e *estimator) { e.maxIter = n }
}

// WithTol sets the P-IRLS deviance tolerance.
func WithTol(tol float64) Option {
	return func(e *estimator) { e.tol = tol }
}

// estimator holds what the regressor and the classifier share.
type estimator struct {
	state *model.StateManager

	nSplines  int
	degree    int
	alpha     float64
	family    string
	criterion string
	method    string
	seed      uint64
	maxIter   int
	tol       float64

	modelType string
	results   *gam.Results
	selection *gam.Selection
}

func newEstimator(modelType, family string, opts []Option) *estimator {
	e := &estimator{
		state:     model.NewStateManager(),
		nSplines:  10,
		degree:    3,
		alpha:     1,
		family:    family,
		method:    gam.MethodBasinHopping,
		maxIter:   100,
		tol:       1e-8,
		modelType: modelType,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *estimator) newFamily() (glm.Family, error) {
	link := ""
	if e.family == "gamma" {
		link = "log"
	}
	return glm.NewFamily(e.family, link)
}

func columns(X mat.Matrix) [][]float64 {
	_, cols := X.Dims()
	xs := make([][]float64, cols)
	for j := range xs {
		xs[j] = mat.Col(nil, j, X)
	}
	return xs
}

func intercept(n int) *mat.Dense {
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, 1)
	}
	return m
}

// fit trains the model. w holds optional per-observation data weights.
func (e *estimator) fit(X, y mat.Matrix, w []float64) error {
	op := e.modelType + ".Fit"
	started := time.Now()
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError(op, 1, yCols, 1)
	}
	fam, err := e.newFamily()
	if err != nil {
		return err
	}

	xs := columns(X)
	terms := make([]smooth.Term, cols)
	for j, x := range xs {
		bs, err := smooth.NewBSplines(fmt.Sprintf("x%d", j), x, e.nSplines, e.degree)
		if err != nil {
			return errors.Wrapf(err, "%s: feature %d", op, j)
		}
		terms[j] = bs
	}
	s, err := smooth.NewAdditiveSmoother(terms...)
	if err != nil {
		return err
	}
	m, err := gam.NewModel(mat.Col(nil, 0, y), intercept(rows), s, gam.UniformAlpha(e.alpha), fam)
	if err != nil {
		return err
	}

	fitOpts := []gam.FitOption{gam.WithMaxIter(e.maxIter), gam.WithTol(e.tol, 0)}
	if w != nil {
		fitOpts = append(fitOpts, gam.WithWeights(w))
	}
	e.selection = nil
	alpha := gam.UniformAlpha(e.alpha)
	if e.criterion != "" {
		start := make([]float64, cols)
		for j := range start {
			start[j] = logAlpha(e.alpha)
		}
		sel, err := m.SelectPenaltyWeight(e.criterion,
			gam.WithSelectMethod(e.method),
			gam.WithStartLogAlpha(start...),
			gam.WithSelectFitOptions(fitOpts...),
			gam.WithSelectSettings(minimize.Settings{Seed: e.seed}),
		)
		if err != nil {
			return err
		}
		e.selection = sel
		alpha = gam.AlphaVector(sel.Alpha...)
	}

	res, err := m.FitAlpha(alpha, fitOpts...)
	if err != nil {
		return err
	}
	e.results = res
	e.state.SetFitted(cols, rows)

	log.GetLoggerWithName("sklearn.additive_model").Info("model fitted",
		log.ModelNameKey, e.modelType,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.EDFKey, res.EDFTotal(),
		log.ConvergedKey, res.Converged(),
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return nil
}

// logAlpha maps alpha to the optimizer's log scale; zero starts near no penalty.
func logAlpha(a float64) float64 {
	return math.Log(math.Max(a, 1e-8))
}

// mean returns the fitted mean response for X.
func (e *estimator) mean(X mat.Matrix, method string) ([]float64, error) {
	if err := e.state.RequireFitted(e.modelType, method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := e.state.RequireFeatures(e.modelType+"."+method, cols); err != nil {
		return nil, err
	}
	return e.results.Predict(intercept(rows), columns(X), nil)
}

func (e *estimator) params() map[string]interface{} {
	return map[string]interface{}{
		"n_splines": e.nSplines,
		"degree":    e.degree,
		"alpha":     e.alpha,
		"family":    e.family,
		"criterion": e.criterion,
		"method":    e.method,
		"seed":      e.seed,
		"max_iter":  e.maxIter,
		"tol":       e.tol,
		"fitted":    e.state.IsFitted(),
	}
}

func (e *estimator) setParams(params map[string]interface{}) error {
	for k, v := range params {
		var ok bool
		switch k {
		case "n_splines":
			e.nSplines, ok = asInt(v)
		case "degree":
			e.degree, ok = asInt(v)
		case "max_iter":
			e.maxIter, ok = asInt(v)
		case "alpha":
			e.alpha, ok = v.(float64)
		case "tol":
			e.tol, ok = v.(float64)
		case "family":
			e.family, ok = v.(string)
		case "criterion":
			e.criterion, ok = v.(string)
		case "method":
			e.method, ok = v.(string)
		case "seed":
			var s int
			s, ok = asInt(v)
			e.seed = uint64(s)
		default:
			ok = true
		}
		if !ok {
			return errors.NewInvalidArgumentError(e.modelType+".SetParams", k, "wrong type", v)
		}
	}
	e.state.Reset()
	e.results = nil
	return nil
}

// asInt accepts ints and the float64 values JSON decoding produces.
func asInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), x == float64(int(x))
	}
	return 0, false
}

func (e *estimator) exportWeights() (*model.ModelWeights, error) {
	if err := e.state.RequireFitted(e.modelType, "ExportWeights"); err != nil {
		return nil, err
	}
	nFeatures, nSamples := e.state.GetDimensions()
	res := e.results
	features := []string{"const"}
	for j := 0; j < nFeatures; j++ {
		for k := 0; k < e.nSplines; k++ {
			features = append(features, fmt.Sprintf("x%d_s%d", j, k))
		}
	}

	w := &model.ModelWeights{
		ModelType:       e.modelType,
		Version:         version,
		Coefficients:    res.Params(),
		Alpha:           res.Alpha(),
		EDF:             res.EDF(),
		Features:        features,
		IsFitted:        true,
		Hyperparameters: e.params(),
		Metadata: map[string]interface{}{
			"n_features": nFeatures,
			"n_samples":  nSamples,
			"family":     res.Family().Name(),
			"scale":      res.Scale(),
			"deviance":   res.Deviance(),
			"gcv":        res.GCV(),
			"iterations": res.History().Iterations,
			"converged":  res.Converged(),
		},
	}
	data, err := json.Marshal(w.Coefficients)
	if err != nil {
		return nil, errors.Wrap(err, e.modelType+".ExportWeights")
	}
	hash := sha256.Sum256(data)
	w.Metadata["checksum"] = hex.EncodeToString(hash[:])
	return w, w.Validate()
}

// Results returns the underlying GAM fit, nil before Fit.
func (e *estimator) Results() *gam.Results { return e.results }

// Selection returns the penalty weight search of the last Fit, nil when
// the alpha was fixed.
func (e *estimator) Selection() *gam.Selection { return e.selection }

// IsFitted returns whether the model has been fitted.
func (e *estimator) IsFitted() bool { return e.state.IsFitted() }

func (e *estimator) String() string {
	if !e.state.IsFitted() {
		return fmt.Sprintf("%s(n_splines=%d, degree=%d, alpha=%g, family=%s)",
			e.modelType, e.nSplines, e.degree, e.alpha, e.family)
	}
	nFeatures, _ := e.state.GetDimensions()
	return fmt.Sprintf("%s(n_features=%d, edf=%.3f, fitted=true)", e.modelType, nFeatures, e.results.EDFTotal())
}
