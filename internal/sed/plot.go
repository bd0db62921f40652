package sed

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions configure an SED plot.
type PlotOptions struct {
	// Log plots both axes on a log10 scale.
	Log bool
	// Alphas overlays theoretical spectral-index lines anchored at the
	// lowest-frequency point.
	Alphas []float64
}

// overlaySamples is the number of points along each spectral-index
// overlay line.
const overlaySamples = 50

// alphaPalette colors the spectral-index overlay lines.
var alphaPalette = []color.RGBA{
	{R: 196, G: 78, B: 82, A: 255},
	{R: 85, G: 130, B: 169, A: 255},
	{R: 95, G: 158, B: 110, A: 255},
	{R: 204, G: 185, B: 116, A: 255},
}

// Build assembles the flux-versus-frequency plot for one source.
func Build(name string, points []Point, opts PlotOptions) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("sed: no points to plot for %q", name)
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = "Frequency (GHz)"
	p.Y.Label.Text = "Flux (Jy)"
	if opts.Log {
		p.X.Scale = plot.LogScale{}
		p.Y.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	xys := make(plotter.XYs, len(points))
	yerrs := make(plotter.YErrors, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.FreqGHz, Y: pt.Flux}
		if pt.HasErr {
			yerrs[i].Low = pt.FluxErr
			yerrs[i].High = pt.FluxErr
		}
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("measured", scatter)

	bars, err := plotter.NewYErrorBars(struct {
		plotter.XYs
		plotter.YErrors
	}{xys, yerrs})
	if err != nil {
		return nil, err
	}
	p.Add(bars)

	// Overlay power laws anchored at the lowest-frequency measurement.
	anchor := points[0]
	fmin, fmax := points[0].FreqGHz, points[len(points)-1].FreqGHz
	for ai, alpha := range opts.Alphas {
		line := make(plotter.XYs, overlaySamples)
		for i := 0; i < overlaySamples; i++ {
			nu := fmin + (fmax-fmin)*float64(i)/float64(overlaySamples-1)
			line[i] = plotter.XY{X: nu, Y: SpectralFlux(anchor.FreqGHz, nu, anchor.Flux, alpha)}
		}
		l, err := plotter.NewLine(line)
		if err != nil {
			return nil, err
		}
		l.Color = alphaPalette[ai%len(alphaPalette)]
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("alpha = %g", alpha), l)
	}

	p.Legend.Top = true
	return p, nil
}

// Save builds the SED plot and writes it to path. A missing image
// extension defaults to .png.
func Save(name string, points []Point, opts PlotOptions, path string) error {
	p, err := Build(name, points, opts)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("sed: save plot %q: %w", path, err)
	}
	return nil
}
