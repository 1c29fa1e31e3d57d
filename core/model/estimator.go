package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer は予測精度を評価できるモデルのインターフェース
type Scorer interface {
	// Score はモデルの決定係数（R²）を計算する
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator は scikit-learn 風の推定器が満たすインターフェース
type Estimator interface {
	Fitter
	Predictor
	Scorer
	IsFitted() bool
}

// WeightExporter は学習済みの係数をシリアライズ可能な形で取り出せるモデル
type WeightExporter interface {
	ExportWeights() (*ModelWeights, error)
}
