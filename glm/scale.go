package glm

import (
	"fmt"
)

// ScaleEstimator selects how the dispersion parameter is estimated after a fit.
type ScaleEstimator int

const (
	// ScalePearson uses the Pearson χ² divided by the residual degrees of freedom.
	ScalePearson ScaleEstimator = iota
	// ScaleDeviance uses the deviance divided by the residual degrees of freedom.
	ScaleDeviance
	// ScaleFixed uses a caller supplied value.
	ScaleFixed
)

func (s ScaleEstimator) String() string {
	switch s {
	case ScalePearson:
		return "pearson"
	case ScaleDeviance:
		return "deviance"
	case ScaleFixed:
		return "fixed"
	default:
		return fmt.Sprintf("ScaleEstimator(%d)", int(s))
	}
}

// ParseScaleEstimator maps "pearson", "x2", "deviance", "dev" and "fixed" to
// a ScaleEstimator.
func ParseScaleEstimator(s string) (ScaleEstimator, bool) {
	switch s {
	case "", "pearson", "x2", "X2":
		return ScalePearson, true
	case "deviance", "dev":
		return ScaleDeviance, true
	case "fixed":
		return ScaleFixed, true
	default:
		return 0, false
	}
}

// EstimateScale returns the dispersion for the given fit quantities.
// Families with a known dispersion return 1 unless the scale is fixed.
func EstimateScale(fam Family, est ScaleEstimator, fixed, pearsonChi2, deviance, dfResid float64) float64 {
	if est == ScaleFixed {
		return fixed
	}
	if fam.FixedScale() {
		return 1
	}
	if dfResid <= 0 {
		return 1
	}
	if est == ScaleDeviance {
		return deviance / dfResid
	}
	return pearsonChi2 / dfResid
}
