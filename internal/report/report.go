// Package report renders interactive HTML sky plots of merged catalogs
// using go-echarts.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

// Render writes a standalone HTML scatter of the catalog's source
// positions to w: one series for kept sources, one for rejected ones.
// Tooltips carry the source name.
func Render(t *catalog.Table, title string, w io.Writer) error {
	for _, name := range []string{catalog.ColXCen, catalog.ColYCen} {
		if !t.HasColumn(name) {
			return fmt.Errorf("report: catalog missing column %q", name)
		}
	}

	xCol := t.Column(catalog.ColXCen)
	yCol := t.Column(catalog.ColYCen)
	nameCol := t.Column(catalog.ColName)

	var kept, rejected []opts.ScatterData
	for i := 0; i < t.NumRows(); i++ {
		x, okx := xCol.Float(i)
		y, oky := yCol.Float(i)
		if !okx || !oky {
			continue
		}
		name := ""
		if nameCol != nil {
			name, _ = nameCol.String(i)
		}
		d := opts.ScatterData{Name: name, Value: []interface{}{x, y}}
		if catalog.Rejected(t, i) {
			rejected = append(rejected, d)
		} else {
			kept = append(kept, d)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("sources=%d rejected=%d", len(kept), len(rejected)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x_cen", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y_cen", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("sources", kept, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	if len(rejected) > 0 {
		scatter.AddSeries("rejected", rejected, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("report: render chart: %w", err)
	}
	return nil
}

// WriteFile renders the sky plot to the named HTML file.
func WriteFile(t *catalog.Table, title, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Render(t, title, f); err != nil {
		return err
	}
	return f.Close()
}
