// Package sed assembles and plots spectral energy distributions from
// frequency-tagged catalog columns.
package sed

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

// Point is one SED sample: integrated flux (and optionally peak flux and
// flux error) at a frequency in GHz.
type Point struct {
	FreqGHz float64
	Flux    float64
	FluxErr float64
	Peak    float64
	HasErr  bool
	HasPeak bool
}

// fluxColumn matches frequency-tagged flux column names like
// "93GHz_ellipse_sum" or "33.5GHz_circ1_peak".
var fluxColumn = regexp.MustCompile(`^(\d+(?:\.\d+)?)GHz_(.+)_(sum|peak|err)$`)

// ExtractPoints collects the SED of one catalog row from its
// frequency-tagged flux columns, restricted to the given aperture shape
// tag. Masked measurements are skipped. Points come back sorted by
// frequency.
func ExtractPoints(t *catalog.Table, row int, shape string) ([]Point, error) {
	if row < 0 || row >= t.NumRows() {
		return nil, fmt.Errorf("sed: row %d out of range (table has %d rows)", row, t.NumRows())
	}

	byFreq := map[float64]*Point{}
	for _, c := range t.Columns() {
		m := fluxColumn.FindStringSubmatch(c.Name)
		if m == nil || m[2] != shape {
			continue
		}
		v, ok := c.Float(row)
		if !ok {
			continue
		}
		freq, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		p := byFreq[freq]
		if p == nil {
			p = &Point{FreqGHz: freq}
			byFreq[freq] = p
		}
		switch m[3] {
		case "sum":
			p.Flux = v
		case "peak":
			p.Peak = v
			p.HasPeak = true
		case "err":
			p.FluxErr = v
			p.HasErr = true
		}
	}

	out := make([]Point, 0, len(byFreq))
	for _, p := range byFreq {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FreqGHz < out[j].FreqGHz })
	return out, nil
}

// SpectralFlux extrapolates a flux f1 measured at nu1 to nu2 along a
// power law with spectral index alpha: f1 * (nu2/nu1)^alpha.
func SpectralFlux(nu1, nu2, f1, alpha float64) float64 {
	return f1 * math.Pow(nu2/nu1, alpha)
}

// FitIndex fits the spectral index alpha over the points by least squares
// on log flux versus log frequency. At least two points with positive
// flux are required.
func FitIndex(points []Point) (float64, error) {
	var logNu, logF []float64
	for _, p := range points {
		if p.FreqGHz <= 0 || p.Flux <= 0 {
			continue
		}
		logNu = append(logNu, math.Log10(p.FreqGHz))
		logF = append(logF, math.Log10(p.Flux))
	}
	if len(logNu) < 2 {
		return 0, fmt.Errorf("sed: need at least two positive flux points to fit an index, have %d", len(logNu))
	}
	_, alpha := stat.LinearRegression(logNu, logF, nil, false)
	return alpha, nil
}

// RMS returns the root mean square deviation of xs about their mean.
func RMS(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sq := make([]float64, len(xs))
	for i, x := range xs {
		sq[i] = x * x
	}
	m := stat.Mean(xs, nil)
	m2 := stat.Mean(sq, nil)
	return math.Sqrt(math.Abs(m2 - m*m))
}
