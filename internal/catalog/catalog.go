// Package catalog implements the in-memory table model for source
// detection catalogs: typed columns with explicit per-cell validity
// bitmaps, vertical stacking with column union, and the detection row
// schema shared by the matching and export code.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Detection row schema. Frequency-tagged flux columns follow the pattern
// <freq>GHz_<shape>_{sum,peak,err,detected} and may be present in one
// catalog and masked in another.
const (
	ColIdx    = "_idx"
	ColIndex  = "_index"
	ColName   = "_name"
	ColXCen   = "x_cen"
	ColYCen   = "y_cen"
	ColMajor  = "major_fwhm"
	ColMinor  = "minor_fwhm"
	ColPA     = "position_angle"
	ColReject = "rejected"
)

// Kind is the storage type of a column.
type Kind int

const (
	Float Kind = iota
	Int
	String
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case String:
		return "string"
	default:
		return "float"
	}
}

// Column is a typed value buffer with a per-cell validity bitmap. A cell
// with Valid[i] == false is masked (no measurement). Fill, when set,
// controls how masked cells serialize; it does not clear the mask.
type Column struct {
	Name string
	Kind Kind

	Floats []float64
	Ints   []int64
	Strs   []string
	Valid  []bool

	Fill    float64
	HasFill bool
}

// NewFloatColumn builds a fully valid float column.
func NewFloatColumn(name string, data []float64) *Column {
	v := make([]bool, len(data))
	for i := range v {
		v[i] = true
	}
	return &Column{Name: name, Kind: Float, Floats: data, Valid: v}
}

// NewIntColumn builds a fully valid int column.
func NewIntColumn(name string, data []int64) *Column {
	v := make([]bool, len(data))
	for i := range v {
		v[i] = true
	}
	return &Column{Name: name, Kind: Int, Ints: data, Valid: v}
}

// NewStringColumn builds a fully valid string column.
func NewStringColumn(name string, data []string) *Column {
	v := make([]bool, len(data))
	for i := range v {
		v[i] = true
	}
	return &Column{Name: name, Kind: String, Strs: data, Valid: v}
}

// NewMaskedColumn builds an all-masked column of the given kind/length.
func NewMaskedColumn(name string, kind Kind, n int) *Column {
	c := &Column{Name: name, Kind: kind, Valid: make([]bool, n)}
	switch kind {
	case Int:
		c.Ints = make([]int64, n)
	case String:
		c.Strs = make([]string, n)
	default:
		c.Floats = make([]float64, n)
	}
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Valid) }

// IsValid reports whether cell i holds a measurement.
func (c *Column) IsValid(i int) bool { return c.Valid[i] }

// SetMasked clears cell i.
func (c *Column) SetMasked(i int) { c.Valid[i] = false }

// Float returns cell i coerced to float64. Int columns convert; string
// columns report false.
func (c *Column) Float(i int) (float64, bool) {
	if !c.Valid[i] {
		return 0, false
	}
	switch c.Kind {
	case Float:
		return c.Floats[i], true
	case Int:
		return float64(c.Ints[i]), true
	default:
		return 0, false
	}
}

// SetFloat stores a float value into cell i and marks it valid. Int
// columns truncate.
func (c *Column) SetFloat(i int, v float64) {
	switch c.Kind {
	case Float:
		c.Floats[i] = v
	case Int:
		c.Ints[i] = int64(v)
	case String:
		c.Strs[i] = fmt.Sprintf("%g", v)
	}
	c.Valid[i] = true
}

// String returns cell i as a string (only for String columns).
func (c *Column) String(i int) (string, bool) {
	if c.Kind != String || !c.Valid[i] {
		return "", false
	}
	return c.Strs[i], true
}

// CopyCell copies cell si of src into cell i of c, including validity.
// Kinds must match (VStack guarantees this for unioned tables).
func (c *Column) CopyCell(i int, src *Column, si int) error {
	if c.Kind != src.Kind {
		return fmt.Errorf("column %q: cannot copy %s cell into %s column", c.Name, src.Kind, c.Kind)
	}
	switch c.Kind {
	case Float:
		c.Floats[i] = src.Floats[si]
	case Int:
		c.Ints[i] = src.Ints[si]
	case String:
		c.Strs[i] = src.Strs[si]
	}
	c.Valid[i] = src.Valid[si]
	return nil
}

// SetFill sets the serialization fill value for masked cells.
func (c *Column) SetFill(v float64) {
	c.Fill = v
	c.HasFill = true
}

// slice returns a copy of the column restricted to the given cells.
func (c *Column) slice(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Fill: c.Fill, HasFill: c.HasFill,
		Valid: make([]bool, len(rows))}
	switch c.Kind {
	case Float:
		out.Floats = make([]float64, len(rows))
		for i, r := range rows {
			out.Floats[i] = c.Floats[r]
			out.Valid[i] = c.Valid[r]
		}
	case Int:
		out.Ints = make([]int64, len(rows))
		for i, r := range rows {
			out.Ints[i] = c.Ints[r]
			out.Valid[i] = c.Valid[r]
		}
	case String:
		out.Strs = make([]string, len(rows))
		for i, r := range rows {
			out.Strs[i] = c.Strs[r]
			out.Valid[i] = c.Valid[r]
		}
	}
	return out
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	cols   []*Column
	byName map[string]*Column
}

// New returns an empty table.
func New() *Table {
	return &Table{byName: make(map[string]*Column)}
}

// AddColumn appends a column. The length must match existing columns and
// the name must be unique.
func (t *Table) AddColumn(c *Column) error {
	if _, ok := t.byName[c.Name]; ok {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	t.cols = append(t.cols, c)
	t.byName[c.Name] = c
	return nil
}

// ReplaceColumn adds the column, overwriting any existing column with the
// same name in place.
func (t *Table) ReplaceColumn(c *Column) error {
	if old, ok := t.byName[c.Name]; ok {
		if c.Len() != old.Len() {
			return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), old.Len())
		}
		for i, existing := range t.cols {
			if existing.Name == c.Name {
				t.cols[i] = c
				break
			}
		}
		t.byName[c.Name] = c
		return nil
	}
	return t.AddColumn(c)
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column { return t.byName[name] }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.byName[name] != nil }

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return t.cols }

// SortColumns reorders columns alphabetically by name.
func (t *Table) SortColumns() {
	sort.Slice(t.cols, func(i, j int) bool { return t.cols[i].Name < t.cols[j].Name })
}

// Select returns a new table containing the given row positions, in
// order.
func (t *Table) Select(rows []int) *Table {
	out := New()
	for _, c := range t.cols {
		// Column lengths match by construction; AddColumn cannot fail here.
		_ = out.AddColumn(c.slice(rows))
	}
	return out
}

// Reindex overwrites (or creates) the _index column with a dense 0..N-1
// numbering.
func (t *Table) Reindex() {
	n := t.NumRows()
	idx := make([]int64, n)
	for i := range idx {
		idx[i] = int64(i)
	}
	// Replace cannot fail: the new column length equals the table length.
	_ = t.ReplaceColumn(NewIntColumn(ColIndex, idx))
}

// promote returns the common kind of two columns with the same name from
// different tables. Int and Float promote to Float; anything mixed with
// String is an error.
func promote(a, b Kind) (Kind, error) {
	if a == b {
		return a, nil
	}
	if (a == Int && b == Float) || (a == Float && b == Int) {
		return Float, nil
	}
	return Float, fmt.Errorf("cannot unify %s and %s columns", a, b)
}

// convertKind returns a copy of c widened to the given kind.
func convertKind(c *Column, kind Kind) *Column {
	if c.Kind == kind {
		return c
	}
	// Only Int -> Float widening is reachable through promote.
	out := &Column{Name: c.Name, Kind: Float, Fill: c.Fill, HasFill: c.HasFill,
		Floats: make([]float64, c.Len()), Valid: make([]bool, c.Len())}
	for i := 0; i < c.Len(); i++ {
		out.Floats[i] = float64(c.Ints[i])
		out.Valid[i] = c.Valid[i]
	}
	return out
}

// VStack stacks b under a, taking the union of the two column sets.
// Cells of columns missing from one operand are masked for that operand's
// rows. The output column order is a's columns followed by b's extras;
// callers wanting alphabetical order sort afterwards.
func VStack(a, b *Table) (*Table, error) {
	na, nb := a.NumRows(), b.NumRows()
	out := New()

	appendCol := func(name string, ca, cb *Column) error {
		var kind Kind
		switch {
		case ca != nil && cb != nil:
			k, err := promote(ca.Kind, cb.Kind)
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			kind = k
			ca = convertKind(ca, kind)
			cb = convertKind(cb, kind)
		case ca != nil:
			kind = ca.Kind
		default:
			kind = cb.Kind
		}

		c := NewMaskedColumn(name, kind, na+nb)
		if ca != nil {
			c.Fill, c.HasFill = ca.Fill, ca.HasFill
			for i := 0; i < na; i++ {
				if err := c.CopyCell(i, ca, i); err != nil {
					return err
				}
			}
		}
		if cb != nil {
			if !c.HasFill {
				c.Fill, c.HasFill = cb.Fill, cb.HasFill
			}
			for i := 0; i < nb; i++ {
				if err := c.CopyCell(na+i, cb, i); err != nil {
					return err
				}
			}
		}
		return out.AddColumn(c)
	}

	for _, ca := range a.cols {
		if err := appendCol(ca.Name, ca, b.Column(ca.Name)); err != nil {
			return nil, err
		}
	}
	for _, cb := range b.cols {
		if a.HasColumn(cb.Name) {
			continue
		}
		if err := appendCol(cb.Name, nil, cb); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindRow returns the position of the row whose _idx equals idx.
func FindRow(t *Table, idx int64) (int, bool) {
	c := t.Column(ColIdx)
	if c == nil {
		return 0, false
	}
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok && int64(v) == idx {
			return i, true
		}
	}
	return 0, false
}

// MaskedRows returns the positions of rows containing at least one masked
// cell.
func MaskedRows(t *Table) []int {
	var out []int
	for i := 0; i < t.NumRows(); i++ {
		for _, c := range t.cols {
			if !c.IsValid(i) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Rejected reports whether row i carries a nonzero rejected flag.
func Rejected(t *Table, i int) bool {
	c := t.Column(ColReject)
	if c == nil {
		return false
	}
	v, ok := c.Float(i)
	return ok && v != 0
}

// DetectedColumns returns the names of columns whose name contains
// "detected", in table order.
func DetectedColumns(t *Table) []string {
	var out []string
	for _, c := range t.cols {
		if strings.Contains(c.Name, "detected") {
			out = append(out, c.Name)
		}
	}
	return out
}
