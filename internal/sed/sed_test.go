package sed

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

func TestSpectralFlux(t *testing.T) {
	tests := []struct {
		name                string
		nu1, nu2, f1, alpha float64
		want                float64
	}{
		{"flat spectrum", 93, 226, 1.5, 0, 1.5},
		{"alpha 1 doubles with frequency", 10, 20, 3, 1, 6},
		{"alpha 2", 10, 30, 1, 2, 9},
		{"negative index", 10, 100, 5, -1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpectralFlux(tt.nu1, tt.nu2, tt.f1, tt.alpha)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SpectralFlux = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFitIndexExactPowerLaw(t *testing.T) {
	const alpha = 2.5
	points := []Point{
		{FreqGHz: 10, Flux: SpectralFlux(10, 10, 1, alpha)},
		{FreqGHz: 33, Flux: SpectralFlux(10, 33, 1, alpha)},
		{FreqGHz: 93, Flux: SpectralFlux(10, 93, 1, alpha)},
		{FreqGHz: 226, Flux: SpectralFlux(10, 226, 1, alpha)},
	}
	got, err := FitIndex(points)
	if err != nil {
		t.Fatalf("FitIndex failed: %v", err)
	}
	if math.Abs(got-alpha) > 1e-9 {
		t.Errorf("FitIndex = %v, want %v", got, alpha)
	}
}

func TestFitIndexTooFewPoints(t *testing.T) {
	if _, err := FitIndex([]Point{{FreqGHz: 10, Flux: 1}}); err == nil {
		t.Error("expected error for single point")
	}
	// Non-positive fluxes are excluded from the fit.
	if _, err := FitIndex([]Point{
		{FreqGHz: 10, Flux: 1},
		{FreqGHz: 20, Flux: -1},
	}); err == nil {
		t.Error("expected error when only one usable point remains")
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"constant", []float64{5, 5, 5}, 0},
		{"symmetric pair", []float64{-1, 1}, 1},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMS(tt.xs); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RMS(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}

func sedTable(t *testing.T) *catalog.Table {
	t.Helper()
	tab := catalog.New()
	cols := []*catalog.Column{
		catalog.NewStringColumn(catalog.ColName, []string{"src0"}),
		catalog.NewFloatColumn("93GHz_ellipse_sum", []float64{1.0}),
		catalog.NewFloatColumn("93GHz_ellipse_peak", []float64{0.8}),
		catalog.NewFloatColumn("93GHz_ellipse_err", []float64{0.05}),
		catalog.NewFloatColumn("226GHz_ellipse_sum", []float64{2.2}),
		catalog.NewFloatColumn("226GHz_circ1_sum", []float64{9.9}),
	}
	for _, c := range cols {
		if err := tab.AddColumn(c); err != nil {
			t.Fatal(err)
		}
	}
	return tab
}

func TestExtractPoints(t *testing.T) {
	tab := sedTable(t)
	points, err := ExtractPoints(tab, 0, "ellipse")
	if err != nil {
		t.Fatalf("ExtractPoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}

	p93 := points[0]
	if p93.FreqGHz != 93 || p93.Flux != 1.0 {
		t.Errorf("93GHz point = %+v", p93)
	}
	if !p93.HasErr || p93.FluxErr != 0.05 {
		t.Errorf("93GHz error = %+v", p93)
	}
	if !p93.HasPeak || p93.Peak != 0.8 {
		t.Errorf("93GHz peak = %+v", p93)
	}

	// Other aperture shapes are excluded; points sorted ascending.
	p226 := points[1]
	if p226.FreqGHz != 226 || p226.Flux != 2.2 {
		t.Errorf("226GHz point = %+v", p226)
	}
	if p226.HasErr || p226.HasPeak {
		t.Errorf("226GHz point should have no err/peak: %+v", p226)
	}
}

func TestExtractPointsSkipsMasked(t *testing.T) {
	tab := sedTable(t)
	tab.Column("226GHz_ellipse_sum").SetMasked(0)
	points, err := ExtractPoints(tab, 0, "ellipse")
	if err != nil {
		t.Fatalf("ExtractPoints failed: %v", err)
	}
	if len(points) != 1 || points[0].FreqGHz != 93 {
		t.Errorf("points = %+v, want only the 93GHz point", points)
	}
}

func TestExtractPointsRowOutOfRange(t *testing.T) {
	tab := sedTable(t)
	if _, err := ExtractPoints(tab, 5, "ellipse"); err == nil {
		t.Error("expected error for out-of-range row")
	}
}

func TestSavePlot(t *testing.T) {
	points := []Point{
		{FreqGHz: 93, Flux: 1.0, FluxErr: 0.05, HasErr: true},
		{FreqGHz: 226, Flux: 2.2},
	}
	dir := t.TempDir()

	path := filepath.Join(dir, "src0.png")
	if err := Save("src0", points, PlotOptions{Log: true, Alphas: []float64{1, 2}}, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("plot file missing or empty: %v", err)
	}

	// Missing extension defaults to .png.
	if err := Save("src0", points, PlotOptions{}, filepath.Join(dir, "bare")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bare.png")); err != nil {
		t.Errorf("default .png file missing: %v", err)
	}

	if err := Save("empty", nil, PlotOptions{}, filepath.Join(dir, "x.png")); err == nil {
		t.Error("expected error for empty point set")
	}
}
