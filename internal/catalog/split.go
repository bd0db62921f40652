package catalog

import (
	"fmt"
	"sort"
	"strconv"
)

// FreqSpec selects how an external catalog is partitioned by frequency:
// either every row is at a single fixed frequency (GHz), or a column
// holds per-row frequency values in GHz.
type FreqSpec struct {
	GHz    float64
	Column string
}

// FluxColumns names the flux measurement columns of an external catalog
// that get renamed to frequency-tagged names during a split.
type FluxColumns struct {
	Sum  string
	Peak string
	Err  string
}

// FreqID renders a frequency in GHz as the identifier embedded in column
// names, e.g. 93 -> "93GHz", 33.5 -> "33.5GHz".
func FreqID(ghz float64) string {
	return strconv.FormatFloat(ghz, 'f', -1, 64) + "GHz"
}

// Split partitions t into per-frequency sub-tables, renaming the flux
// sum/peak/error columns to embed the frequency identifier and aperture
// shape tag (e.g. "93GHz_ellipse_sum"), making the sub-tables compatible
// with the merge engine's column-union step.
//
// With a fixed-frequency spec the result is a single renamed table; with
// a column spec the rows are grouped by that column's value and one table
// is returned per distinct frequency, ascending. The sub-tables are
// copies; the input table is left untouched.
func Split(t *Table, spec FreqSpec, shape string, flux FluxColumns) ([]*Table, error) {
	if shape == "" {
		return nil, fmt.Errorf("split: empty aperture shape tag")
	}
	for _, name := range []string{flux.Sum, flux.Peak, flux.Err} {
		if name != "" && !t.HasColumn(name) {
			return nil, fmt.Errorf("split: catalog has no column %q", name)
		}
	}

	if spec.Column == "" {
		rows := make([]int, t.NumRows())
		for i := range rows {
			rows[i] = i
		}
		sub, err := renameFlux(t.Select(rows), spec.GHz, shape, flux)
		if err != nil {
			return nil, err
		}
		return []*Table{sub}, nil
	}

	fc := t.Column(spec.Column)
	if fc == nil {
		return nil, fmt.Errorf("split: catalog has no frequency column %q", spec.Column)
	}

	groups := make(map[float64][]int)
	for i := 0; i < t.NumRows(); i++ {
		v, ok := fc.Float(i)
		if !ok {
			return nil, fmt.Errorf("split: row %d has no frequency value", i)
		}
		groups[v] = append(groups[v], i)
	}

	freqs := make([]float64, 0, len(groups))
	for f := range groups {
		freqs = append(freqs, f)
	}
	sort.Float64s(freqs)

	out := make([]*Table, 0, len(freqs))
	for _, f := range freqs {
		sub := t.Select(groups[f])
		renamed, err := renameFlux(sub, f, shape, flux)
		if err != nil {
			return nil, err
		}
		out = append(out, renamed)
	}
	return out, nil
}

// renameFlux rewrites the flux column names of t in place to the
// frequency-tagged form and returns t.
func renameFlux(t *Table, ghz float64, shape string, flux FluxColumns) (*Table, error) {
	prefix := FreqID(ghz) + "_" + shape + "_"
	rename := map[string]string{}
	if flux.Sum != "" {
		rename[flux.Sum] = prefix + "sum"
	}
	if flux.Peak != "" {
		rename[flux.Peak] = prefix + "peak"
	}
	if flux.Err != "" {
		rename[flux.Err] = prefix + "err"
	}

	for old, to := range rename {
		c := t.Column(old)
		if c == nil {
			return nil, fmt.Errorf("split: catalog has no column %q", old)
		}
		if t.HasColumn(to) {
			return nil, fmt.Errorf("split: column %q already exists", to)
		}
		delete(t.byName, old)
		c.Name = to
		t.byName[to] = c
	}
	return t, nil
}
