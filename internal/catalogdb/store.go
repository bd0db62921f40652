package catalogdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

// Run summarizes one persisted merge run.
type Run struct {
	ID        string
	CreatedAt string
	Inputs    []string
	RowCount  int
}

// coreColumns are stored in dedicated sqlite columns; everything else
// (the frequency-tagged flux columns) rides along as JSON in extra.
var coreColumns = map[string]bool{
	catalog.ColIdx:    true,
	catalog.ColIndex:  true,
	catalog.ColName:   true,
	catalog.ColXCen:   true,
	catalog.ColYCen:   true,
	catalog.ColMajor:  true,
	catalog.ColMinor:  true,
	catalog.ColPA:     true,
	catalog.ColReject: true,
}

func nullFloat(t *catalog.Table, name string, row int) sql.NullFloat64 {
	c := t.Column(name)
	if c == nil {
		return sql.NullFloat64{}
	}
	v, ok := c.Float(row)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func nullInt(t *catalog.Table, name string, row int) sql.NullInt64 {
	c := t.Column(name)
	if c == nil {
		return sql.NullInt64{}
	}
	v, ok := c.Float(row)
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}

func nullString(t *catalog.Table, name string, row int) sql.NullString {
	c := t.Column(name)
	if c == nil {
		return sql.NullString{}
	}
	v, ok := c.String(row)
	return sql.NullString{String: v, Valid: ok}
}

// SaveRun persists a merged catalog as a new run and returns the run id.
func (s *Store) SaveRun(t *catalog.Table, inputs []string) (string, error) {
	runID := uuid.NewString()

	tx, err := s.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO merge_runs (run_id, inputs, row_count) VALUES (?, ?, ?)`,
		runID, strings.Join(inputs, ","), t.NumRows(),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO sources
		(run_id, row_index, idx, name, x_cen, y_cen, major_fwhm, minor_fwhm, position_angle, rejected, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i := 0; i < t.NumRows(); i++ {
		extra := map[string]interface{}{}
		for _, c := range t.Columns() {
			if coreColumns[c.Name] || !c.IsValid(i) {
				continue
			}
			if v, ok := c.Float(i); ok {
				extra[c.Name] = v
			} else if v, ok := c.String(i); ok {
				extra[c.Name] = v
			}
		}
		extraJSON, err := json.Marshal(extra)
		if err != nil {
			return "", fmt.Errorf("encode extra columns for row %d: %w", i, err)
		}

		if _, err := stmt.Exec(
			runID, i,
			nullInt(t, catalog.ColIdx, i),
			nullString(t, catalog.ColName, i),
			nullFloat(t, catalog.ColXCen, i),
			nullFloat(t, catalog.ColYCen, i),
			nullFloat(t, catalog.ColMajor, i),
			nullFloat(t, catalog.ColMinor, i),
			nullFloat(t, catalog.ColPA, i),
			nullInt(t, catalog.ColReject, i),
			string(extraJSON),
		); err != nil {
			return "", fmt.Errorf("insert source row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// LoadRun rebuilds the catalog table of a persisted run. NULL cells come
// back masked.
func (s *Store) LoadRun(runID string) (*catalog.Table, error) {
	rows, err := s.Query(`SELECT idx, name, x_cen, y_cen, major_fwhm, minor_fwhm,
		position_angle, rejected, extra
		FROM sources WHERE run_id = ? ORDER BY row_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type srcRow struct {
		idx      sql.NullInt64
		name     sql.NullString
		x, y     sql.NullFloat64
		mj, mn   sql.NullFloat64
		pa       sql.NullFloat64
		rejected sql.NullInt64
		extra    map[string]interface{}
	}
	var recs []srcRow
	for rows.Next() {
		var r srcRow
		var extraJSON sql.NullString
		if err := rows.Scan(&r.idx, &r.name, &r.x, &r.y, &r.mj, &r.mn, &r.pa, &r.rejected, &extraJSON); err != nil {
			return nil, err
		}
		if extraJSON.Valid && extraJSON.String != "" {
			if err := json.Unmarshal([]byte(extraJSON.String), &r.extra); err != nil {
				return nil, fmt.Errorf("decode extra columns: %w", err)
			}
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no such run %q", runID)
	}

	n := len(recs)
	t := catalog.New()

	addInt := func(name string, get func(srcRow) sql.NullInt64) error {
		c := catalog.NewMaskedColumn(name, catalog.Int, n)
		for i, r := range recs {
			if v := get(r); v.Valid {
				c.Ints[i] = v.Int64
				c.Valid[i] = true
			}
		}
		return t.AddColumn(c)
	}
	addFloat := func(name string, get func(srcRow) sql.NullFloat64) error {
		c := catalog.NewMaskedColumn(name, catalog.Float, n)
		for i, r := range recs {
			if v := get(r); v.Valid {
				c.Floats[i] = v.Float64
				c.Valid[i] = true
			}
		}
		return t.AddColumn(c)
	}

	if err := addInt(catalog.ColIdx, func(r srcRow) sql.NullInt64 { return r.idx }); err != nil {
		return nil, err
	}
	nameCol := catalog.NewMaskedColumn(catalog.ColName, catalog.String, n)
	for i, r := range recs {
		if r.name.Valid {
			nameCol.Strs[i] = r.name.String
			nameCol.Valid[i] = true
		}
	}
	if err := t.AddColumn(nameCol); err != nil {
		return nil, err
	}
	floatCols := []struct {
		name string
		get  func(srcRow) sql.NullFloat64
	}{
		{catalog.ColXCen, func(r srcRow) sql.NullFloat64 { return r.x }},
		{catalog.ColYCen, func(r srcRow) sql.NullFloat64 { return r.y }},
		{catalog.ColMajor, func(r srcRow) sql.NullFloat64 { return r.mj }},
		{catalog.ColMinor, func(r srcRow) sql.NullFloat64 { return r.mn }},
		{catalog.ColPA, func(r srcRow) sql.NullFloat64 { return r.pa }},
	}
	for _, fc := range floatCols {
		if err := addFloat(fc.name, fc.get); err != nil {
			return nil, err
		}
	}
	if err := addInt(catalog.ColReject, func(r srcRow) sql.NullInt64 { return r.rejected }); err != nil {
		return nil, err
	}

	// Union of extra column names across all rows. JSON numbers load as
	// float columns, strings as string columns.
	extraNames := map[string]bool{}
	for _, r := range recs {
		for k := range r.extra {
			extraNames[k] = true
		}
	}
	sorted := make([]string, 0, len(extraNames))
	for k := range extraNames {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		isString := false
		for _, r := range recs {
			if v, ok := r.extra[name]; ok {
				if _, s := v.(string); s {
					isString = true
				}
				break
			}
		}
		if isString {
			c := catalog.NewMaskedColumn(name, catalog.String, n)
			for i, r := range recs {
				if v, ok := r.extra[name].(string); ok {
					c.Strs[i] = v
					c.Valid[i] = true
				}
			}
			if err := t.AddColumn(c); err != nil {
				return nil, err
			}
			continue
		}
		c := catalog.NewMaskedColumn(name, catalog.Float, n)
		for i, r := range recs {
			if v, ok := r.extra[name].(float64); ok {
				c.Floats[i] = v
				c.Valid[i] = true
			}
		}
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}

	t.SortColumns()
	t.Reindex()
	return t, nil
}

// ListRuns returns all persisted runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.Query(`SELECT run_id, created_at, inputs, row_count
		FROM merge_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var inputs sql.NullString
		if err := rows.Scan(&r.ID, &r.CreatedAt, &inputs, &r.RowCount); err != nil {
			return nil, err
		}
		if inputs.Valid && inputs.String != "" {
			r.Inputs = strings.Split(inputs.String, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
