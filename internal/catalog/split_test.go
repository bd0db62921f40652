package catalog

import "testing"

func TestFreqID(t *testing.T) {
	tests := []struct {
		ghz  float64
		want string
	}{
		{93, "93GHz"},
		{33.5, "33.5GHz"},
		{226.0, "226GHz"},
	}
	for _, tt := range tests {
		if got := FreqID(tt.ghz); got != tt.want {
			t.Errorf("FreqID(%v) = %q, want %q", tt.ghz, got, tt.want)
		}
	}
}

func splitInput(t *testing.T) *Table {
	t.Helper()
	tab := New()
	cols := []*Column{
		NewIntColumn(ColIdx, []int64{0, 1, 2, 3}),
		NewStringColumn(ColName, []string{"a", "b", "c", "d"}),
		NewFloatColumn("freq", []float64{93, 226, 93, 226}),
		NewFloatColumn("flux_sum", []float64{1, 2, 3, 4}),
		NewFloatColumn("flux_peak", []float64{0.1, 0.2, 0.3, 0.4}),
		NewFloatColumn("flux_err", []float64{0.01, 0.02, 0.03, 0.04}),
	}
	for _, c := range cols {
		if err := tab.AddColumn(c); err != nil {
			t.Fatal(err)
		}
	}
	return tab
}

func TestSplitFixedFrequency(t *testing.T) {
	tab := splitInput(t)
	subs, err := Split(tab, FreqSpec{GHz: 93}, "ellipse",
		FluxColumns{Sum: "flux_sum", Peak: "flux_peak", Err: "flux_err"})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d sub-tables, want 1", len(subs))
	}
	sub := subs[0]
	for _, name := range []string{"93GHz_ellipse_sum", "93GHz_ellipse_peak", "93GHz_ellipse_err"} {
		if !sub.HasColumn(name) {
			t.Errorf("missing renamed column %q (have %v)", name, sub.ColumnNames())
		}
	}
	if sub.HasColumn("flux_sum") {
		t.Error("original flux_sum column should be renamed away")
	}
	if sub.NumRows() != 4 {
		t.Errorf("fixed-frequency split changed row count: %d", sub.NumRows())
	}
}

func TestSplitLeavesInputUntouched(t *testing.T) {
	tab := splitInput(t)
	if _, err := Split(tab, FreqSpec{GHz: 93}, "ellipse",
		FluxColumns{Sum: "flux_sum", Peak: "flux_peak", Err: "flux_err"}); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for _, name := range []string{"flux_sum", "flux_peak", "flux_err"} {
		if !tab.HasColumn(name) {
			t.Errorf("input lost column %q (have %v)", name, tab.ColumnNames())
		}
	}
	if tab.HasColumn("93GHz_ellipse_sum") {
		t.Error("input gained a renamed column")
	}
}

func TestSplitByColumn(t *testing.T) {
	tab := splitInput(t)
	subs, err := Split(tab, FreqSpec{Column: "freq"}, "ellipse",
		FluxColumns{Sum: "flux_sum", Peak: "flux_peak", Err: "flux_err"})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d sub-tables, want 2", len(subs))
	}

	// Ascending frequency order: 93 then 226.
	if !subs[0].HasColumn("93GHz_ellipse_sum") {
		t.Errorf("first sub-table columns: %v", subs[0].ColumnNames())
	}
	if !subs[1].HasColumn("226GHz_ellipse_sum") {
		t.Errorf("second sub-table columns: %v", subs[1].ColumnNames())
	}
	if subs[0].NumRows() != 2 || subs[1].NumRows() != 2 {
		t.Errorf("group sizes = %d, %d; want 2, 2", subs[0].NumRows(), subs[1].NumRows())
	}
	if v, _ := subs[1].Column("226GHz_ellipse_sum").Float(0); v != 2 {
		t.Errorf("226GHz sum[0] = %v, want 2", v)
	}
}

func TestSplitMissingColumns(t *testing.T) {
	tab := splitInput(t)
	if _, err := Split(tab, FreqSpec{GHz: 93}, "ellipse", FluxColumns{Sum: "nope"}); err == nil {
		t.Error("expected error for missing flux column")
	}
	if _, err := Split(tab, FreqSpec{Column: "nope"}, "ellipse", FluxColumns{Sum: "flux_sum"}); err == nil {
		t.Error("expected error for missing frequency column")
	}
	if _, err := Split(tab, FreqSpec{GHz: 93}, "", FluxColumns{Sum: "flux_sum"}); err == nil {
		t.Error("expected error for empty shape tag")
	}
}
