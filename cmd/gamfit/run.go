package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/metrics"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"github.com/YuminosukeSato/scigam/smooth"
)

func readMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy header %s", path)
	}
	m := &mat.Dense{}
	if err := r.Read(m); err != nil {
		return nil, errors.Wrapf(err, "read npy data %s", path)
	}
	return m, nil
}

func readVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var v []float64
	if err := npyio.Read(f, &v); err != nil {
		return nil, errors.Wrapf(err, "read npy %s", path)
	}
	return v, nil
}

func writeMatrix(path string, m mat.Matrix) error {
	dst, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := npyio.Write(dst, m); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "write npy %s", path)
	}
	return dst.Close()
}

// buildModel turns every column of X into a B-spline term next to a
// constant column.
func buildModel(cfg Config, X *mat.Dense, y []float64) (*gam.Model, error) {
	n, k := X.Dims()
	fam, err := glm.NewFamily(cfg.Family, cfg.Link)
	if err != nil {
		return nil, err
	}
	terms := make([]smooth.Term, k)
	for j := 0; j < k; j++ {
		bs, err := smooth.NewBSplines(fmt.Sprintf("x%d", j), mat.Col(nil, j, X), cfg.NSplines, cfg.Degree)
		if err != nil {
			return nil, errors.Wrapf(err, "column %d", j)
		}
		terms[j] = bs
	}
	s, err := smooth.NewAdditiveSmoother(terms...)
	if err != nil {
		return nil, err
	}
	ones := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		ones.Set(i, 0, 1)
	}
	return gam.NewModel(y, ones, s, cfg.alpha(), fam)
}

// run fits the model described by cfg and writes the requested outputs.
func run(cfg Config) (*gam.Results, error) {
	logger := log.GetLoggerWithName("gamfit")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	X, err := readMatrix(cfg.FileNameX)
	if err != nil {
		return nil, err
	}
	y, err := readVector(cfg.FileNameY)
	if err != nil {
		return nil, err
	}
	var w []float64
	if cfg.FileNameSampleWeight != "" {
		if w, err = readVector(cfg.FileNameSampleWeight); err != nil {
			return nil, err
		}
	}
	m, err := buildModel(cfg, X, y)
	if err != nil {
		return nil, err
	}

	fitOpts := []gam.FitOption{gam.WithConfig(cfg.Fit)}
	if w != nil {
		fitOpts = append(fitOpts, gam.WithWeights(w))
	}
	alpha := cfg.alpha()
	if cfg.Criterion != "" {
		start := make([]float64, m.NumTerms())
		for i, a := range m.Alpha() {
			start[i] = math.Log(math.Max(a, 1e-8))
		}
		sel, err := m.SelectPenaltyWeight(cfg.Criterion,
			gam.WithSelectMethod(cfg.Method),
			gam.WithStartLogAlpha(start...),
			gam.WithSelectFitOptions(fitOpts...),
			gam.WithBasinHoppingSeed(cfg.Seed),
		)
		if err != nil {
			return nil, err
		}
		alpha = gam.AlphaVector(sel.Alpha...)
	}
	res, err := m.FitAlpha(alpha, fitOpts...)
	if err != nil {
		return nil, err
	}
	logger.Info(res.String())
	yv := mat.NewVecDense(len(y), y)
	muv := mat.NewVecDense(len(y), res.Mu())
	sw := metrics.WithSampleWeight(w)
	rmse, err := metrics.RMSE(yv, muv, sw)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(yv, muv, sw)
	if err != nil {
		return nil, err
	}
	d2, err := metrics.D2Score(yv, muv, res.Family(), sw)
	if err != nil {
		return nil, err
	}
	logger.Info("in-sample error", "rmse", rmse, "mae", mae, "d2", d2)

	if cfg.FileNameFitted != "" {
		mu := res.Mu()
		if err := writeMatrix(cfg.FileNameFitted, mat.NewDense(len(mu), 1, mu)); err != nil {
			return nil, err
		}
	}
	if cfg.FileNameWeights != "" {
		if err := writeWeights(cfg, res); err != nil {
			return nil, err
		}
	}
	if cfg.FileNamePlot != "" {
		for i := 0; i < m.NumTerms(); i++ {
			path := plotPath(cfg.FileNamePlot, m.Smoother().Term(i).Name())
			term := i
			err := errors.SafeExecute("gamfit.plot", func() error {
				return res.SavePartialPlot(path, term, gam.DefaultPartialPlotOptions(), 6*vg.Inch, 4*vg.Inch)
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func plotPath(base, term string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + term + ext
}

func writeWeights(cfg Config, res *gam.Results) error {
	tests := make([]map[string]float64, res.Model().NumTerms())
	for i := range tests {
		wt, err := res.TestSignificance(i)
		if err != nil {
			return err
		}
		tests[i] = map[string]float64{"statistic": wt.Statistic, "df": wt.DF, "pvalue": wt.PValue}
	}
	w := &model.ModelWeights{
		ModelType:    "GLMGam",
		Version:      "1.0.0",
		Coefficients: res.Params(),
		Alpha:        res.Alpha(),
		EDF:          res.EDF(),
		IsFitted:     true,
		Hyperparameters: map[string]interface{}{
			"family":    res.Family().Name(),
			"n_splines": cfg.NSplines,
			"degree":    cfg.Degree,
			"criterion": cfg.Criterion,
		},
		Metadata: map[string]interface{}{
			"scale":        res.Scale(),
			"deviance":     res.Deviance(),
			"llf":          res.LLF(),
			"aic":          res.AIC(),
			"gcv":          res.GCV(),
			"iterations":   res.History().Iterations,
			"converged":    res.Converged(),
			"significance": tests,
		},
	}
	if err := w.Validate(); err != nil {
		return errors.Wrap(err, "gamfit: weights")
	}
	data, err := w.ToJSON()
	if err != nil {
		return errors.Wrap(err, "gamfit: weights")
	}
	if err := os.WriteFile(cfg.FileNameWeights, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", cfg.FileNameWeights)
	}
	return nil
}
