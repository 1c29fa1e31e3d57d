package glm

import (
	"math"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// floatEps is the clipping bound used for means that must stay inside (0, 1)
// or (0, ∞).
const floatEps = 2.220446049250313e-16

// Link is a GLM link function g with mu = g⁻¹(eta).
type Link interface {
	Name() string
	// Link returns g(mu).
	Link(mu float64) float64
	// Inverse returns g⁻¹(eta).
	Inverse(eta float64) float64
	// Deriv returns g'(mu).
	Deriv(mu float64) float64
	// InverseDeriv returns d mu / d eta at eta.
	InverseDeriv(eta float64) float64
}

// IdentityLink is g(mu) = mu.
type IdentityLink struct{}

func (IdentityLink) Name() string                 { return "identity" }
func (IdentityLink) Link(mu float64) float64      { return mu }
func (IdentityLink) Inverse(eta float64) float64  { return eta }
func (IdentityLink) Deriv(float64) float64        { return 1 }
func (IdentityLink) InverseDeriv(float64) float64 { return 1 }

// LogLink is g(mu) = log(mu).
type LogLink struct{}

func (LogLink) Name() string { return "log" }

func (LogLink) Link(mu float64) float64 {
	return math.Log(math.Max(mu, floatEps))
}

func (LogLink) Inverse(eta float64) float64 {
	return errors.StabilizeExp(eta)
}

func (LogLink) Deriv(mu float64) float64 {
	return 1 / math.Max(mu, floatEps)
}

func (LogLink) InverseDeriv(eta float64) float64 {
	return errors.StabilizeExp(eta)
}

// LogitLink is g(p) = log(p / (1 − p)).
type LogitLink struct{}

func (LogitLink) Name() string { return "logit" }

func (LogitLink) Link(p float64) float64 {
	p = clipProb(p)
	return math.Log(p / (1 - p))
}

func (LogitLink) Inverse(eta float64) float64 {
	if eta >= 0 {
		return 1 / (1 + math.Exp(-eta))
	}
	e := math.Exp(eta)
	return e / (1 + e)
}

func (LogitLink) Deriv(p float64) float64 {
	p = clipProb(p)
	return 1 / (p * (1 - p))
}

func (l LogitLink) InverseDeriv(eta float64) float64 {
	p := l.Inverse(eta)
	return p * (1 - p)
}

// InversePowerLink is g(mu) = 1/mu, canonical for the Gamma family.
type InversePowerLink struct{}

func (InversePowerLink) Name() string { return "inverse_power" }

func (InversePowerLink) Link(mu float64) float64     { return 1 / mu }
func (InversePowerLink) Inverse(eta float64) float64 { return 1 / eta }
func (InversePowerLink) Deriv(mu float64) float64    { return -1 / (mu * mu) }
func (InversePowerLink) InverseDeriv(eta float64) float64 {
	return -1 / (eta * eta)
}

func clipProb(p float64) float64 {
	return errors.ClipValue(p, floatEps, 1-floatEps)
}

// ParseLink returns the link with the given Name.
func ParseLink(name string) (Link, error) {
	for _, l := range []Link{IdentityLink{}, LogLink{}, LogitLink{}, InversePowerLink{}} {
		if l.Name() == name {
			return l, nil
		}
	}
	return nil, errors.NewInvalidArgumentError("glm.ParseLink", "link", "must be identity, log, logit or inverse_power", name)
}
