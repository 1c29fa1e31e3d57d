// Package errors はscigam全体のエラーハンドリングと警告システムを提供します。
// GAMの推定で発生する失敗（完全分離、数値的破綻、不正な引数）を型付きエラーとして表現し、
// 非収束のような致命的でない状況は警告として扱います。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("scigam-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// ConvergenceWarningなどの処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は反復アルゴリズムが maxiter 以内に収束しなかった場合の警告です。
// 結果自体は返されるため、呼び出し側が扱いを決めます。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing maxiter or the tolerance.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("scigam: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("scigam: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "columns"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// InvalidArgumentError は反復の開始前に検出される不正な引数のエラーです。
// 未知の最適化手法名、長さの合わないalpha、負のペナルティ重みなどが該当します。
type InvalidArgumentError struct {
	Op     string
	Param  string
	Reason string
	Value  interface{}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("scigam: %s: invalid argument '%s': %s (got: %v)", e.Op, e.Param, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidArgumentError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "InvalidArgumentError")
}

// NewInvalidArgumentError は新しいInvalidArgumentErrorを作成し、スタックトレースを付与します。
func NewInvalidArgumentError(op, param, reason string, value interface{}) error {
	err := &InvalidArgumentError{Op: op, Param: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// PerfectSeparationError は予測平均が全観測で応答に一致した場合のエラーです。
// 尤度が有界でなくなるため、再試行せずに呼び出し側へそのまま返します。
type PerfectSeparationError struct {
	Op        string
	Iteration int
}

func (e *PerfectSeparationError) Error() string {
	return fmt.Sprintf("scigam: %s: perfect separation detected at iteration %d, results not available", e.Op, e.Iteration)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PerfectSeparationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("iteration", e.Iteration).
		Str("type", "PerfectSeparationError")
}

// NewPerfectSeparationError は新しいPerfectSeparationErrorを作成し、スタックトレースを付与します。
func NewPerfectSeparationError(op string, iteration int) error {
	err := &PerfectSeparationError{Op: op, Iteration: iteration}
	return errors.WithStack(err)
}

// NumericalError は数値計算が破綻した場合のエラーです。
// ペナルティ行列が半正定値でない、拡大WLS系が特異、逸脱度がNaN/Infになった場合などに返されます。
type NumericalError struct {
	Op     string
	Reason string
	Values []float64 // 問題のある値（先頭のみ表示）
	Err    error
}

func (e *NumericalError) Error() string {
	msg := fmt.Sprintf("scigam: %s: numerical failure: %s", e.Op, e.Reason)
	if len(e.Values) > 0 {
		msg += fmt.Sprintf(" [%s]", formatValues(e.Values, 5))
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Floats64("values", e.Values).
		Str("type", "NumericalError")
}

// NewNumericalError は新しいNumericalErrorを作成し、スタックトレースを付与します。
func NewNumericalError(op, reason string, values []float64) error {
	err := &NumericalError{Op: op, Reason: reason, Values: values}
	return errors.WithStack(err)
}

// WrapNumericalError は下位のエラーをNumericalErrorとして包みます。
func WrapNumericalError(op, reason string, cause error) error {
	err := &NumericalError{Op: op, Reason: reason, Err: cause}
	return errors.WithStack(err)
}

func formatValues(values []float64, limit int) string {
	s := ""
	for i, v := range values {
		if i > 0 {
			s += ", "
		}
		if i >= limit {
			s += "..."
			break
		}
		s += fmt.Sprintf("%.6g", v)
	}
	return s
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("scigam: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError はモデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scigam: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("scigam: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrNotPSD は半正定値であるべき行列が負の固有値を持つ場合のエラーです。
	ErrNotPSD = New("matrix is not positive semi-definite")
)
