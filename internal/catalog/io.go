package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV parses a catalog from CSV. The first record is the header.
// Empty cells are masked. Column kinds are inferred from the populated
// cells: all-integer columns load as Int, numeric columns as Float,
// anything else as String.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: empty input")
	}
	header := records[0]
	rows := records[1:]

	t := New()
	for ci, name := range header {
		cells := make([]string, len(rows))
		for ri, rec := range rows {
			if ci < len(rec) {
				cells[ri] = rec[ci]
			}
		}
		col, err := inferColumn(name, cells)
		if err != nil {
			return nil, err
		}
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadCSVFile reads a catalog from the named CSV file.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func inferColumn(name string, cells []string) (*Column, error) {
	isInt, isFloat := true, true
	for _, s := range cells {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			isFloat = false
		}
	}

	switch {
	case isInt:
		c := NewMaskedColumn(name, Int, len(cells))
		for i, s := range cells {
			if s == "" {
				continue
			}
			v, _ := strconv.ParseInt(s, 10, 64)
			c.Ints[i] = v
			c.Valid[i] = true
		}
		return c, nil
	case isFloat:
		c := NewMaskedColumn(name, Float, len(cells))
		for i, s := range cells {
			if s == "" {
				continue
			}
			v, _ := strconv.ParseFloat(s, 64)
			c.Floats[i] = v
			c.Valid[i] = true
		}
		return c, nil
	default:
		c := NewMaskedColumn(name, String, len(cells))
		for i, s := range cells {
			if s == "" {
				continue
			}
			c.Strs[i] = s
			c.Valid[i] = true
		}
		return c, nil
	}
}

// cellString serializes cell i of c. Masked cells render as the column's
// fill value when one is set, otherwise empty.
func cellString(c *Column, i int) string {
	if !c.Valid[i] {
		if c.HasFill {
			if c.Kind == Int {
				return strconv.FormatInt(int64(c.Fill), 10)
			}
			return strconv.FormatFloat(c.Fill, 'g', -1, 64)
		}
		return ""
	}
	switch c.Kind {
	case Int:
		return strconv.FormatInt(c.Ints[i], 10)
	case String:
		return c.Strs[i]
	default:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	}
}

// WriteCSV serializes the table as CSV with a header record.
func WriteCSV(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns() {
			rec[j] = cellString(c, i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to the named file.
func WriteCSVFile(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(t, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
