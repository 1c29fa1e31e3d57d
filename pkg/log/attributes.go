// Standard attribute keys for scigam log records.
//
// Keys follow a hierarchical naming convention ("model.name", "gam.alpha")
// so records from the engine and the selector can be filtered together.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type, e.g. "GLMGam", "GLM".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: OperationFit, OperationSelect, OperationPredict.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or component that logs.
	ComponentKey = "ml.component"

	// FamilyKey records the GLM family and link, e.g. "Gaussian(identity)".
	FamilyKey = "model.family"
)

// Data shape.
const (
	// SamplesKey indicates the number of observations.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of design-matrix columns.
	FeaturesKey = "data.features"

	// TermsKey indicates the number of smooth terms.
	TermsKey = "data.smooth_terms"
)

// Iterative fitting.
const (
	// IterationKey records the current iteration number.
	IterationKey = "training.iteration"

	// DevianceKey records the deviance after an iteration.
	DevianceKey = "gam.deviance"

	// DevianceChangeKey records the absolute deviance change between iterations.
	DevianceChangeKey = "gam.deviance_change"

	// ConvergedKey records whether the fit converged.
	ConvergedKey = "gam.converged"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Penalty-weight selection.
const (
	// AlphaKey records the penalty weights of an evaluation.
	AlphaKey = "gam.alpha"

	// CriterionKey names the selection criterion (aic, bic, gcv, cv).
	CriterionKey = "gam.criterion"

	// CriterionValueKey records the criterion value of an evaluation.
	CriterionValueKey = "gam.criterion_value"

	// EDFKey records the total effective degrees of freedom.
	EDFKey = "gam.edf"

	// MethodKey names the outer optimization method.
	MethodKey = "gam.method"

	// EvaluationsKey records the number of objective evaluations.
	EvaluationsKey = "gam.evaluations"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the error.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationSelect  = "select_penweight"
	OperationPredict = "predict"
	OperationScore   = "score"

	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorPerfectSeparation = "PERFECT_SEPARATION"
	ErrorInvalidArgument   = "INVALID_ARGUMENT"
)
