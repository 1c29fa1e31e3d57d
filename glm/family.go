// Package glm implements the generalized linear model pieces the GAM engine
// relies on: exponential families with their links, the scale rule, plain
// IRLS and a results type exposing the generic fit capabilities.
package glm

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Family describes an exponential family distribution together with its link.
type Family interface {
	// Name returns e.g. "Gaussian(identity)".
	Name() string
	Link() Link
	// StartingMu returns the initial mean estimate used when no start
	// parameters are given.
	StartingMu(y []float64) []float64
	// Variance returns V(mu).
	Variance(mu float64) float64
	// Weights returns the IRLS weight 1 / (g'(mu)² V(mu)).
	Weights(mu float64) float64
	// Fitted maps a linear predictor to the mean.
	Fitted(eta float64) float64
	// Deviance returns Σ wᵢ dᵢ(yᵢ, μᵢ). A nil w means unit weights.
	Deviance(y, mu, w []float64) float64
	// LogLike returns the log-likelihood at the given scale.
	LogLike(y, mu, w []float64, scale float64) float64
	// FixedScale reports whether the dispersion is known to be one.
	FixedScale() bool
	// CheckResponse validates the response domain.
	CheckResponse(y []float64) error
}

type family struct {
	name string
	link Link
}

func (f family) Name() string { return fmt.Sprintf("%s(%s)", f.name, f.link.Name()) }

func (f family) Link() Link { return f.link }

func (f family) Fitted(eta float64) float64 { return f.link.Inverse(eta) }

func weightAt(w []float64, i int) float64 {
	if w == nil {
		return 1
	}
	return w[i]
}

func meanStart(y []float64) []float64 {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	mu := make([]float64, len(y))
	for i, v := range y {
		mu[i] = (v + mean) / 2
	}
	return mu
}

// Gaussian is the normal family, canonical link identity.
type Gaussian struct{ family }

// NewGaussian returns the Gaussian family with the given link, identity by default.
func NewGaussian(link ...Link) *Gaussian {
	return &Gaussian{family{name: "Gaussian", link: pickLink(link, IdentityLink{})}}
}

func (g *Gaussian) StartingMu(y []float64) []float64 { return meanStart(y) }

func (g *Gaussian) Variance(float64) float64 { return 1 }

func (g *Gaussian) Weights(mu float64) float64 {
	d := g.link.Deriv(mu)
	return 1 / (d * d)
}

func (g *Gaussian) Deviance(y, mu, w []float64) float64 {
	var dev float64
	for i := range y {
		r := y[i] - mu[i]
		dev += weightAt(w, i) * r * r
	}
	return dev
}

func (g *Gaussian) LogLike(y, mu, w []float64, scale float64) float64 {
	var llf float64
	for i := range y {
		wi := weightAt(w, i)
		if wi == 0 {
			continue
		}
		r := y[i] - mu[i]
		llf += -wi*r*r/(2*scale) - 0.5*math.Log(2*math.Pi*scale/wi)
	}
	return llf
}

func (g *Gaussian) FixedScale() bool { return false }

func (g *Gaussian) CheckResponse(y []float64) error {
	return errors.CheckNumericalStability("Gaussian.CheckResponse", y)
}

// Binomial is the Bernoulli/proportion family, canonical link logit.
type Binomial struct{ family }

// NewBinomial returns the Binomial family with the given link, logit by default.
func NewBinomial(link ...Link) *Binomial {
	return &Binomial{family{name: "Binomial", link: pickLink(link, LogitLink{})}}
}

func (b *Binomial) StartingMu(y []float64) []float64 {
	mu := make([]float64, len(y))
	for i, v := range y {
		mu[i] = (v + 0.5) / 2
	}
	return mu
}

func (b *Binomial) Variance(mu float64) float64 {
	p := clipProb(mu)
	return p * (1 - p)
}

func (b *Binomial) Weights(mu float64) float64 {
	d := b.link.Deriv(mu)
	return 1 / (d * d * b.Variance(mu))
}

func (b *Binomial) Deviance(y, mu, w []float64) float64 {
	var dev float64
	for i := range y {
		p := clipProb(mu[i])
		dev += 2 * weightAt(w, i) * (xlogy(y[i], y[i]/p) + xlogy(1-y[i], (1-y[i])/(1-p)))
	}
	return dev
}

func (b *Binomial) LogLike(y, mu, w []float64, _ float64) float64 {
	var llf float64
	for i := range y {
		p := clipProb(mu[i])
		llf += weightAt(w, i) * (y[i]*math.Log(p) + (1-y[i])*math.Log(1-p))
	}
	return llf
}

func (b *Binomial) FixedScale() bool { return true }

func (b *Binomial) CheckResponse(y []float64) error {
	for i, v := range y {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return errors.NewValueError("Binomial.CheckResponse", fmt.Sprintf("response %d is %g, must lie in [0, 1]", i, v))
		}
	}
	return nil
}

// Poisson is the count family, canonical link log.
type Poisson struct{ family }

// NewPoisson returns the Poisson family with the given link, log by default.
func NewPoisson(link ...Link) *Poisson {
	return &Poisson{family{name: "Poisson", link: pickLink(link, LogLink{})}}
}

func (p *Poisson) StartingMu(y []float64) []float64 { return meanStart(y) }

func (p *Poisson) Variance(mu float64) float64 { return math.Max(mu, floatEps) }

func (p *Poisson) Weights(mu float64) float64 {
	d := p.link.Deriv(mu)
	return 1 / (d * d * p.Variance(mu))
}

func (p *Poisson) Deviance(y, mu, w []float64) float64 {
	var dev float64
	for i := range y {
		m := math.Max(mu[i], floatEps)
		dev += 2 * weightAt(w, i) * (xlogy(y[i], y[i]/m) - (y[i] - m))
	}
	return dev
}

func (p *Poisson) LogLike(y, mu, w []float64, _ float64) float64 {
	var llf float64
	for i := range y {
		m := math.Max(mu[i], floatEps)
		lg, _ := math.Lgamma(y[i] + 1)
		llf += weightAt(w, i) * (y[i]*math.Log(m) - m - lg)
	}
	return llf
}

func (p *Poisson) FixedScale() bool { return true }

func (p *Poisson) CheckResponse(y []float64) error {
	for i, v := range y {
		if v < 0 || math.IsNaN(v) {
			return errors.NewValueError("Poisson.CheckResponse", fmt.Sprintf("response %d is %g, must be non-negative", i, v))
		}
	}
	return nil
}

// Gamma is the positive continuous family, canonical link inverse power.
type Gamma struct{ family }

// NewGamma returns the Gamma family with the given link, inverse power by default.
func NewGamma(link ...Link) *Gamma {
	return &Gamma{family{name: "Gamma", link: pickLink(link, InversePowerLink{})}}
}

func (g *Gamma) StartingMu(y []float64) []float64 { return meanStart(y) }

func (g *Gamma) Variance(mu float64) float64 { return mu * mu }

func (g *Gamma) Weights(mu float64) float64 {
	d := g.link.Deriv(mu)
	return 1 / (d * d * g.Variance(mu))
}

func (g *Gamma) Deviance(y, mu, w []float64) float64 {
	var dev float64
	for i := range y {
		ratio := math.Max(y[i]/mu[i], floatEps)
		dev += 2 * weightAt(w, i) * ((y[i]-mu[i])/mu[i] - math.Log(ratio))
	}
	return dev
}

func (g *Gamma) LogLike(y, mu, w []float64, scale float64) float64 {
	var llf float64
	for i := range y {
		ws := weightAt(w, i) / scale
		ym := math.Max(y[i]/mu[i], floatEps)
		lg, _ := math.Lgamma(ws)
		llf += ws*math.Log(ws*ym) - ws*ym - lg - math.Log(y[i])
	}
	return llf
}

func (g *Gamma) FixedScale() bool { return false }

func (g *Gamma) CheckResponse(y []float64) error {
	for i, v := range y {
		if v <= 0 || math.IsNaN(v) {
			return errors.NewValueError("Gamma.CheckResponse", fmt.Sprintf("response %d is %g, must be positive", i, v))
		}
	}
	return nil
}

func pickLink(links []Link, canonical Link) Link {
	if len(links) > 0 && links[0] != nil {
		return links[0]
	}
	return canonical
}

// xlogy returns x·log(y) with 0·log(0) = 0.
func xlogy(x, y float64) float64 {
	if x == 0 {
		return 0
	}
	return x * math.Log(y)
}

// NewFamily looks a family up by its lower-case name. An empty link name
// keeps the canonical link.
func NewFamily(name, link string) (Family, error) {
	var l Link
	if link != "" {
		var err error
		if l, err = ParseLink(link); err != nil {
			return nil, err
		}
	}
	switch name {
	case "gaussian":
		return NewGaussian(l), nil
	case "binomial":
		return NewBinomial(l), nil
	case "poisson":
		return NewPoisson(l), nil
	case "gamma":
		return NewGamma(l), nil
	}
	return nil, errors.NewInvalidArgumentError("glm.NewFamily", "family", "must be gaussian, binomial, poisson or gamma", name)
}
