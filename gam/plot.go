package gam

import (
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// PartialPlotOptions controls PlotPartial.
type PartialPlotOptions struct {
	// SE adds the ±1.96·se band.
	SE bool
	// Residuals adds the partial residuals (partial effect plus working residual).
	Residuals bool
	// IncludeConstant adds the intercept to the partial effect.
	IncludeConstant bool
}

// DefaultPartialPlotOptions draws the band with the intercept and no residuals.
func DefaultPartialPlotOptions() PartialPlotOptions {
	return PartialPlotOptions{SE: true, IncludeConstant: true}
}

// PlotPartial draws the partial effect of one smooth term against its covariate.
func (r *Results) PlotPartial(term int, opts PartialPlotOptions) (*plot.Plot, error) {
	fitted, se, err := r.PartialValues(term, opts.IncludeConstant)
	if err != nil {
		return nil, err
	}
	t := r.model.Smoother().Term(term)
	x := t.X()

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	est := make(plotter.XYs, len(x))
	upper := make(plotter.XYs, len(x))
	lower := make(plotter.XYs, len(x))
	for k, i := range order {
		est[k] = plotter.XY{X: x[i], Y: fitted[i]}
		upper[k] = plotter.XY{X: x[i], Y: fitted[i] + 1.96*se[i]}
		lower[k] = plotter.XY{X: x[i], Y: fitted[i] - 1.96*se[i]}
	}

	p := plot.New()
	p.Title.Text = "Partial effect of " + t.Name()
	p.X.Label.Text = t.Name()
	p.Y.Label.Text = "linear predictor"

	blue := color.RGBA{B: 200, A: 255}
	line, err := plotter.NewLine(est)
	if err != nil {
		return nil, errors.Wrap(err, "gam.PlotPartial")
	}
	line.LineStyle.Color = blue
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("estimate", line)

	if opts.SE {
		for _, band := range []plotter.XYs{upper, lower} {
			l, err := plotter.NewLine(band)
			if err != nil {
				return nil, errors.Wrap(err, "gam.PlotPartial")
			}
			l.LineStyle.Color = blue
			l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(l)
		}
	}

	if opts.Residuals {
		resid := r.ResidWorking()
		pts := make(plotter.XYs, len(x))
		for k, i := range order {
			pts[k] = plotter.XY{X: x[i], Y: fitted[i] + resid[i]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "gam.PlotPartial")
		}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Color = color.Gray{Y: 96}
		p.Add(sc)
		p.Legend.Add("partial residuals", sc)
	}
	return p, nil
}

// SavePartialPlot writes PlotPartial to path. The format follows the file
// extension (png, svg, pdf, ...).
func (r *Results) SavePartialPlot(path string, term int, opts PartialPlotOptions, width, height vg.Length) error {
	p, err := r.PlotPartial(term, opts)
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "gam.SavePartialPlot: %s", path)
	}
	return nil
}

// ResidWorking returns the working residuals g'(μ)(y − μ).
func (r *Results) ResidWorking() []float64 {
	mu := r.Mu()
	y := r.Endog()
	link := r.Family().Link()
	out := make([]float64, len(mu))
	for i := range mu {
		out[i] = link.Deriv(mu[i]) * (y[i] - mu[i])
	}
	return out
}
