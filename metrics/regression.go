// Package metrics は予測の評価指標を提供します。
// すべての指標は観測ごとの重み（GAMのデータ重みと同じもの）を WithSampleWeight で受け取れます。
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/glm"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Option は指標の計算方法を設定します。
type Option func(*config)

type config struct {
	weights []float64
}

// WithSampleWeight は観測ごとの重みを設定します。nilは等重みです。
func WithSampleWeight(w []float64) Option {
	return func(c *config) { c.weights = w }
}

// weighted は入力を検証し、重みを返す（nilなら全て1）
func weighted(op string, yTrue, yPred *mat.VecDense, opts []Option) ([]float64, float64, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}

	w := cfg.weights
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w, float64(n), nil
	}
	if len(w) != n {
		return nil, 0, errors.NewDimensionError(op, n, len(w), 0)
	}
	var sum float64
	for i, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, 0, errors.NewValueError(op, fmt.Sprintf("sample weight %d is %g, weights must be finite and non-negative", i, v))
		}
		sum += v
	}
	if sum == 0 {
		return nil, 0, errors.NewValueError(op, "sample weights sum to zero")
	}
	return w, sum, nil
}

// MSE は重み付き平均二乗誤差 Σwᵢ(yᵢ-ŷᵢ)² / Σwᵢ を計算する
func MSE(yTrue, yPred *mat.VecDense, opts ...Option) (float64, error) {
	w, sw, err := weighted("MSE", yTrue, yPred, opts)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, wi := range w {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += wi * diff * diff
	}
	return sum / sw, nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense, opts ...Option) (float64, error) {
	mse, err := MSE(yTrue, yPred, opts...)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は重み付き平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense, opts ...Option) (float64, error) {
	w, sw, err := weighted("MAE", yTrue, yPred, opts)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, wi := range w {
		sum += wi * math.Abs(yTrue.AtVec(i)-yPred.AtVec(i))
	}
	return sum / sw, nil
}

// R2Score は決定係数（R²）を計算する。平均は重み付き平均。
func R2Score(yTrue, yPred *mat.VecDense, opts ...Option) (float64, error) {
	w, sw, err := weighted("R2Score", yTrue, yPred, opts)
	if err != nil {
		return 0, err
	}
	var yMean float64
	for i, wi := range w {
		yMean += wi * yTrue.AtVec(i)
	}
	yMean /= sw

	var tss, rss float64
	for i, wi := range w {
		y := yTrue.AtVec(i)
		d := y - yPred.AtVec(i)
		tss += wi * (y - yMean) * (y - yMean)
		rss += wi * d * d
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// D2Score は説明された逸脱度の割合 1 - D(y, ŷ) / D(y, ȳ) を計算する。
// ȳ は重み付き平均で、Gaussian(identity)ではR²と一致する。
func D2Score(yTrue, yPred *mat.VecDense, fam glm.Family, opts ...Option) (float64, error) {
	const op = "D2Score"
	if fam == nil {
		return 0, errors.NewInvalidArgumentError(op, "family", "must not be nil", fam)
	}
	w, sw, err := weighted(op, yTrue, yPred, opts)
	if err != nil {
		return 0, err
	}
	y := mat.Col(nil, 0, yTrue)
	mu := mat.Col(nil, 0, yPred)
	var yMean float64
	for i, wi := range w {
		yMean += wi * y[i]
	}
	yMean /= sw
	null := make([]float64, len(y))
	for i := range null {
		null[i] = yMean
	}

	nullDev := fam.Deviance(y, null, w)
	if nullDev == 0 {
		return 0, errors.NewValueError(op, "null deviance is zero (no variation in yTrue)")
	}
	dev := fam.Deviance(y, mu, w)
	if err := errors.CheckScalar(op, dev); err != nil {
		return 0, err
	}
	return 1 - dev/nullDev, nil
}

// Accuracy は重み付き正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense, opts ...Option) (float64, error) {
	w, sw, err := weighted("Accuracy", yTrue, yPred, opts)
	if err != nil {
		return 0, err
	}
	var hit float64
	for i, wi := range w {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			hit += wi
		}
	}
	return hit / sw, nil
}
