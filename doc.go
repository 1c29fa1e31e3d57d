// Package scigam fits generalized additive models in Go.
//
// A GAM models a response from an exponential family through a link
// function of a linear predictor made of unpenalized linear columns and
// penalized smooth terms. The coefficients are estimated by penalized
// iteratively reweighted least squares (P-IRLS) and the penalty weights can
// be chosen by minimizing AIC, BIC, GCV or leave-one-out CV.
//
// # Quick Start
//
//	bs, err := smooth.NewBSplines("x", x, 10, 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := smooth.NewAdditiveSmoother(bs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := gam.NewModel(y, ones, s, gam.UniformAlpha(1), glm.NewGaussian())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := m.Fit()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.EDFTotal(), res.GCV())
//
// # Packages
//
//   - gam: the GAM model, P-IRLS, results and penalty weight selection
//   - smooth: B-spline smoothers and the block-diagonal penalty
//   - glm: families, links, scale estimation and plain IRLS
//   - linear: weighted least squares by QR
//   - core/minimize: Nelder-Mead, BFGS and basin hopping over gonum/optimize
//   - core/model: estimator interfaces, fitted state and exported weights
//   - core/parallel: row-parallel helpers
//   - sklearn/additive_model: scikit-learn style GAMRegressor and GAMClassifier
//   - metrics: regression metrics
//   - pkg/errors, pkg/log: typed errors, warnings and structured logging
//
// The gamfit command fits a model to .npy files described by a JSON config.
package scigam
