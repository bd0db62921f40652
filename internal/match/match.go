// Package match implements the catalog matcher and merge engine: it
// stacks detection catalogs, finds near-duplicate rows by positional
// proximity, and collapses each duplicate pair into a single combined
// row carrying the union of both rows' measurements.
package match

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/skymap-data/sourcecat/internal/catalog"
	"github.com/skymap-data/sourcecat/internal/ellipse"
	"github.com/skymap-data/sourcecat/internal/units"
)

const (
	// matchThreshold is the Euclidean distance at or below which two
	// detections are considered the same source. It is an absolute
	// tolerance in whatever units x_cen/y_cen carry.
	matchThreshold = 1e-5

	// candidateWindow is the number of nearest-by-|dx| candidates whose
	// full Euclidean distance is examined per test row. Fixed regardless
	// of catalog size; when fewer candidates exist the window clamps to
	// what is available.
	candidateWindow = 10
)

// ScanBoundPolicy controls how the scan cursor reacts to rows being
// removed from the stack mid-scan.
type ScanBoundPolicy int

const (
	// ScanBoundLegacy keeps the scan cursor fixed when a partner below
	// it is removed, exactly as if the stack had physically shifted:
	// the row sliding into the cursor position is skipped as a test
	// row. This reproduces the historical scan order and is the
	// default. Both policies stop the scan one row before the current
	// end of the stack.
	ScanBoundLegacy ScanBoundPolicy = iota

	// ScanBoundRecomputed compensates the cursor when a partner below
	// it is removed, so every surviving row is used as a test row
	// exactly once.
	ScanBoundRecomputed
)

// Options configure a merge. The zero value selects the legacy scan
// behavior.
type Options struct {
	ScanBound ScanBoundPolicy
	// Verbose logs one line per completed pairwise merge.
	Verbose bool
}

var requiredColumns = []string{
	catalog.ColXCen, catalog.ColYCen,
	catalog.ColMajor, catalog.ColMinor, catalog.ColPA,
	catalog.ColReject,
}

// ErrMissingColumn reports a catalog lacking one of the detection schema
// columns the merge needs.
var ErrMissingColumn = errors.New("catalog missing required column")

type candidate struct {
	ord      int // ordinal in the live list
	row      int // backing row position
	adx, ady float64
	dist     float64
	hasDist  bool
}

// Merge combines two catalogs into one, collapsing near-duplicate
// detections. Rejected rows are never matched and pass through
// unmodified. The result carries the union of both column sets in
// alphabetical order, with _index renumbered densely.
func Merge(a, b *catalog.Table, opts Options) (*catalog.Table, error) {
	for _, tab := range []*catalog.Table{a, b} {
		for _, name := range requiredColumns {
			if !tab.HasColumn(name) {
				return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
			}
		}
	}

	st, err := catalog.VStack(a, b)
	if err != nil {
		return nil, fmt.Errorf("stack catalogs: %w", err)
	}
	st.Reindex()
	st.SortColumns()

	// Live row positions into the backing table. Removal during the scan
	// marks a position dead here; the backing storage never shifts.
	live := make([]int, st.NumRows())
	for i := range live {
		live[i] = i
	}

	xCol := st.Column(catalog.ColXCen)
	yCol := st.Column(catalog.ColYCen)

	merges := 0
	i := 0
	// The scan stops one row before the current end of the stack: the
	// final row is only ever a candidate, never a test row.
	for i < len(live)-1 {
		testRow := live[i]
		if catalog.Rejected(st, testRow) {
			i++
			continue
		}

		tx, okx := xCol.Float(testRow)
		ty, oky := yCol.Float(testRow)
		if !okx || !oky {
			return nil, fmt.Errorf("row %d has masked center coordinates", testRow)
		}

		// All other live, non-rejected rows with absolute coordinate
		// deltas from the test row.
		cands := make([]candidate, 0, len(live)-1)
		for ord, row := range live {
			if ord == i || catalog.Rejected(st, row) {
				continue
			}
			cx, okcx := xCol.Float(row)
			cy, okcy := yCol.Float(row)
			if !okcx || !okcy {
				return nil, fmt.Errorf("row %d has masked center coordinates", row)
			}
			cands = append(cands, candidate{
				ord: ord, row: row,
				adx: math.Abs(cx - tx), ady: math.Abs(cy - ty),
			})
		}
		if len(cands) == 0 {
			i++
			continue
		}

		sort.SliceStable(cands, func(p, q int) bool { return cands[p].adx < cands[q].adx })

		window := candidateWindow
		if len(cands) < window {
			window = len(cands)
		}
		found := false
		for j := 0; j < window; j++ {
			cands[j].dist = math.Hypot(cands[j].adx, cands[j].ady)
			cands[j].hasDist = true
			if cands[j].dist <= matchThreshold {
				found = true
			}
		}

		if found {
			// The partner is the globally closest candidate, not just the
			// closest within the window.
			best := 0
			for j := range cands {
				if !cands[j].hasDist {
					cands[j].dist = math.Hypot(cands[j].adx, cands[j].ady)
					cands[j].hasDist = true
				}
				if cands[j].dist < cands[best].dist {
					best = j
				}
			}
			partner := cands[best]

			if err := mergeRows(st, testRow, partner.row); err != nil {
				return nil, err
			}

			live = append(live[:partner.ord], live[partner.ord+1:]...)
			if partner.ord < i && opts.ScanBound == ScanBoundRecomputed {
				// A removal below the cursor slides the next row into
				// the cursor position. Step back so it still gets used
				// as a test row; legacy leaves the cursor alone and
				// skips it.
				i--
			}
			merges++
		}
		i++
	}

	out := st.Select(live)
	// Masked detection flags serialize as 0 once the merge completes.
	for _, name := range catalog.DetectedColumns(out) {
		out.Column(name).SetFill(0)
	}
	out.Reindex()

	if opts.Verbose {
		log.Printf("match: merged %d duplicate pairs, %d rows remain", merges, out.NumRows())
	}
	return out, nil
}

// mergeRows folds the partner row into the test row: centers become
// per-axis averages, the shape becomes the common bounding ellipse, and
// every masked cell of the test row is filled from the partner. Present
// values are never overwritten. The partner row itself is untouched; the
// caller drops it from the live set.
func mergeRows(st *catalog.Table, testRow, partnerRow int) error {
	xCol := st.Column(catalog.ColXCen)
	yCol := st.Column(catalog.ColYCen)

	tx, _ := xCol.Float(testRow)
	ty, _ := yCol.Float(testRow)
	px, okx := xCol.Float(partnerRow)
	py, oky := yCol.Float(partnerRow)
	if !okx || !oky {
		return fmt.Errorf("row %d has masked center coordinates", partnerRow)
	}

	testShape, err := rowEllipse(st, testRow)
	if err != nil {
		return err
	}
	partnerShape, err := rowEllipse(st, partnerRow)
	if err != nil {
		return err
	}
	combined, err := ellipse.Common(testShape, partnerShape)
	if err != nil {
		return fmt.Errorf("common ellipse for rows %d, %d: %w", testRow, partnerRow, err)
	}

	// Each axis averaged independently.
	xCol.SetFloat(testRow, (tx+px)/2)
	yCol.SetFloat(testRow, (ty+py)/2)
	st.Column(catalog.ColMajor).SetFloat(testRow, combined.MajorDeg)
	st.Column(catalog.ColMinor).SetFloat(testRow, combined.MinorDeg)
	st.Column(catalog.ColPA).SetFloat(testRow, combined.PADeg)

	for _, c := range st.Columns() {
		if !c.IsValid(testRow) && c.IsValid(partnerRow) {
			if err := c.CopyCell(testRow, c, partnerRow); err != nil {
				return err
			}
		}
	}
	return nil
}

// rowEllipse reads a row's shape columns as an ellipse in degrees.
func rowEllipse(st *catalog.Table, row int) (ellipse.Ellipse, error) {
	major, ok1 := st.Column(catalog.ColMajor).Float(row)
	minor, ok2 := st.Column(catalog.ColMinor).Float(row)
	pa, ok3 := st.Column(catalog.ColPA).Float(row)
	if !ok1 || !ok2 || !ok3 {
		return ellipse.Ellipse{}, fmt.Errorf("row %d has masked shape columns", row)
	}
	return ellipse.New(
		units.Quantity(major, units.Degree),
		units.Quantity(minor, units.Degree),
		units.Quantity(pa, units.Degree),
	)
}

// MergeAll reduces any number of catalogs left to right with Merge. A
// single catalog is returned unchanged.
func MergeAll(opts Options, cats ...*catalog.Table) (*catalog.Table, error) {
	if len(cats) == 0 {
		return nil, errors.New("no catalogs to merge")
	}
	current := cats[0]
	for k := 1; k < len(cats); k++ {
		merged, err := Merge(current, cats[k], opts)
		if err != nil {
			return nil, fmt.Errorf("merge %d/%d: %w", k, len(cats)-1, err)
		}
		current = merged
	}
	return current, nil
}
