// Command sourcecat merges astronomical source catalogs, splits external
// photometry catalogs by frequency, and exports region files, SED plots,
// and interactive match reports.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skymap-data/sourcecat/internal/catalog"
	"github.com/skymap-data/sourcecat/internal/catalogdb"
	"github.com/skymap-data/sourcecat/internal/config"
	"github.com/skymap-data/sourcecat/internal/match"
	"github.com/skymap-data/sourcecat/internal/regions"
	"github.com/skymap-data/sourcecat/internal/report"
	"github.com/skymap-data/sourcecat/internal/sed"
	"github.com/skymap-data/sourcecat/internal/version"
)

const defaultDBFile = "catalogs.db"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "match":
		runMatch(os.Args[2:])
	case "split":
		runSplit(os.Args[2:])
	case "regions":
		runRegions(os.Args[2:])
	case "seds":
		runSEDs(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "runs":
		runRuns(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		fmt.Printf("sourcecat %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: sourcecat <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  match    Merge two or more detection catalogs into one")
	fmt.Println("  split    Split an external photometry catalog by frequency")
	fmt.Println("  regions  Write a DS9 region file from a catalog")
	fmt.Println("  seds     Plot spectral energy distributions from a merged catalog")
	fmt.Println("  report   Render an interactive HTML scatter of a catalog")
	fmt.Println("  runs     List merge runs stored in the database")
	fmt.Println("  migrate  Manage the catalog database schema")
	fmt.Println("  version  Print build information")
	fmt.Println("  help     Show this help message")
	fmt.Println()
	fmt.Println("Run 'sourcecat <command> -h' for command options.")
}

// parseFloatList parses a comma-separated list of floats
func parseFloatList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseScanBound(s string) (match.ScanBoundPolicy, error) {
	switch s {
	case "legacy":
		return match.ScanBoundLegacy, nil
	case "recomputed":
		return match.ScanBoundRecomputed, nil
	default:
		return 0, fmt.Errorf("invalid scan bound %q (want legacy or recomputed)", s)
	}
}

func runMatch(args []string) {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	out := fs.String("out", "merged.csv", "Output CSV path for the merged catalog")
	regionsOut := fs.String("regions", "", "Also write a DS9 region file to this path")
	skipRejects := fs.Bool("skip-rejects", true, "Omit rejected rows from the region file")
	reportOut := fs.String("report", "", "Also render an HTML scatter report to this path")
	sedDir := fs.String("seds", "", "Also plot per-source SEDs into this directory")
	shape := fs.String("shape", "ellipse", "Aperture shape tag for SED extraction")
	dbPath := fs.String("db", "", "Persist the merged catalog as a run in this sqlite database")
	scanBound := fs.String("scan-bound", "legacy", "Scan bound policy: legacy or recomputed")
	verbose := fs.Bool("v", false, "Log each pairwise merge")
	configPath := fs.String("config", "", "JSON config file with match defaults")
	fs.Parse(args)

	if fs.NArg() < 2 {
		log.Fatal("Usage: sourcecat match [options] <catalog.csv> <catalog.csv> [more...]")
	}

	sedOpts := sed.PlotOptions{}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		// Config values are defaults; explicit flags win.
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if cfg.ScanBound != nil && !set["scan-bound"] {
			*scanBound = *cfg.ScanBound
		}
		if cfg.Shape != nil && !set["shape"] {
			*shape = *cfg.Shape
		}
		if cfg.DBPath != nil && !set["db"] {
			*dbPath = *cfg.DBPath
		}
		if cfg.SkipRejects != nil && !set["skip-rejects"] {
			*skipRejects = *cfg.SkipRejects
		}
		if cfg.Verbose != nil && !set["v"] {
			*verbose = *cfg.Verbose
		}
		if cfg.LogSED != nil {
			sedOpts.Log = *cfg.LogSED
		}
		sedOpts.Alphas = cfg.Alphas
	}

	policy, err := parseScanBound(*scanBound)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cats := make([]*catalog.Table, 0, fs.NArg())
	for _, path := range fs.Args() {
		t, err := catalog.ReadCSVFile(path)
		if err != nil {
			log.Fatalf("Failed to read catalog %s: %v", path, err)
		}
		log.Printf("Read %s: %d rows, %d columns", path, t.NumRows(), t.NumCols())
		cats = append(cats, t)
	}

	merged, err := match.MergeAll(match.Options{ScanBound: policy, Verbose: *verbose}, cats...)
	if err != nil {
		log.Fatalf("Merge failed: %v", err)
	}
	log.Printf("Merged catalog: %d rows, %d columns", merged.NumRows(), merged.NumCols())

	if err := catalog.WriteCSVFile(merged, *out); err != nil {
		log.Fatalf("Failed to write merged catalog: %v", err)
	}
	log.Printf("Wrote merged catalog to %s", *out)

	if *regionsOut != "" {
		if err := regions.Save(merged, *regionsOut, *skipRejects); err != nil {
			log.Fatalf("Failed to write region file: %v", err)
		}
		log.Printf("Wrote region file to %s", *regionsOut)
	}

	if *reportOut != "" {
		if err := report.WriteFile(merged, "Merged catalog", *reportOut); err != nil {
			log.Fatalf("Failed to render report: %v", err)
		}
		log.Printf("Wrote report to %s", *reportOut)
	}

	if *sedDir != "" {
		if err := plotSEDs(merged, *shape, *sedDir, sedOpts); err != nil {
			log.Fatalf("Failed to plot SEDs: %v", err)
		}
	}

	if *dbPath != "" {
		store, err := catalogdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		runID, err := store.SaveRun(merged, fs.Args())
		if err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved merge run %s", runID)
	}
}

func runSplit(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	freq := fs.Float64("freq", 0, "Fixed frequency in GHz for the whole catalog")
	freqCol := fs.String("freq-column", "", "Column holding per-row frequencies in GHz")
	shape := fs.String("shape", "ellipse", "Aperture shape tag embedded in the renamed columns")
	sum := fs.String("sum", "", "Integrated flux column to rename")
	peak := fs.String("peak", "", "Peak flux column to rename")
	errCol := fs.String("err", "", "Flux error column to rename")
	prefix := fs.String("out-prefix", "split_", "Output CSV path prefix; frequency id is appended")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: sourcecat split [options] <catalog.csv>")
	}
	if *freq == 0 && *freqCol == "" {
		log.Fatal("One of -freq or -freq-column is required")
	}

	t, err := catalog.ReadCSVFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}

	spec := catalog.FreqSpec{GHz: *freq, Column: *freqCol}
	flux := catalog.FluxColumns{Sum: *sum, Peak: *peak, Err: *errCol}
	subs, err := catalog.Split(t, spec, *shape, flux)
	if err != nil {
		log.Fatalf("Split failed: %v", err)
	}

	for _, sub := range subs {
		id := freqIDOf(sub)
		path := *prefix + id + ".csv"
		if err := catalog.WriteCSVFile(sub, path); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Wrote %s: %d rows", path, sub.NumRows())
	}
}

// freqIDOf recovers the frequency identifier from a split table's renamed
// flux columns, e.g. "93GHz" from "93GHz_ellipse_sum".
func freqIDOf(t *catalog.Table) string {
	for _, name := range t.ColumnNames() {
		if i := strings.Index(name, "GHz_"); i > 0 {
			return name[:i+3]
		}
	}
	return "unknown"
}

func runRegions(args []string) {
	fs := flag.NewFlagSet("regions", flag.ExitOnError)
	out := fs.String("out", "sources.reg", "Output region file path")
	skipRejects := fs.Bool("skip-rejects", true, "Omit rejected rows")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: sourcecat regions [options] <catalog.csv>")
	}

	t, err := catalog.ReadCSVFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	if err := regions.Save(t, *out, *skipRejects); err != nil {
		log.Fatalf("Failed to write region file: %v", err)
	}
	log.Printf("Wrote region file to %s", *out)
}

func runSEDs(args []string) {
	fs := flag.NewFlagSet("seds", flag.ExitOnError)
	dir := fs.String("dir", "seds", "Directory for the SED plot images")
	shape := fs.String("shape", "ellipse", "Aperture shape tag to extract")
	logScale := fs.Bool("log", false, "Plot both axes on a log scale")
	alphaList := fs.String("alphas", "", "Comma-separated spectral indices to overlay")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: sourcecat seds [options] <merged.csv>")
	}

	alphas, err := parseFloatList(*alphaList)
	if err != nil {
		log.Fatalf("%v", err)
	}

	t, err := catalog.ReadCSVFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	opts := sed.PlotOptions{Log: *logScale, Alphas: alphas}
	if err := plotSEDs(t, *shape, *dir, opts); err != nil {
		log.Fatalf("Failed to plot SEDs: %v", err)
	}
}

// plotSEDs writes one SED plot per unrejected row that has at least two
// flux measurements. Rows without enough points are skipped with a log
// line rather than failing the whole batch.
func plotSEDs(t *catalog.Table, shape, dir string, opts sed.PlotOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	nameCol := t.Column(catalog.ColName)

	plotted := 0
	for i := 0; i < t.NumRows(); i++ {
		if catalog.Rejected(t, i) {
			continue
		}
		name := fmt.Sprintf("row%d", i)
		if nameCol != nil {
			if s, ok := nameCol.String(i); ok {
				name = s
			}
		}
		points, err := sed.ExtractPoints(t, i, shape)
		if err != nil {
			return err
		}
		if len(points) < 2 {
			log.Printf("Skipping SED for %s: %d flux measurement(s)", name, len(points))
			continue
		}
		path := filepath.Join(dir, name+".png")
		if err := sed.Save(name, points, opts, path); err != nil {
			return fmt.Errorf("plot %s: %w", name, err)
		}
		plotted++
	}
	log.Printf("Wrote %d SED plot(s) to %s", plotted, dir)
	return nil
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	out := fs.String("out", "report.html", "Output HTML path")
	title := fs.String("title", "Source catalog", "Report title")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: sourcecat report [options] <catalog.csv>")
	}

	t, err := catalog.ReadCSVFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	if err := report.WriteFile(t, *title, *out); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("Wrote report to %s", *out)
}

func runRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Path to the catalog database")
	fs.Parse(args)

	store, err := catalogdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No merge runs stored.")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %d rows  inputs: %s\n",
			r.ID, r.CreatedAt, r.RowCount, strings.Join(r.Inputs, ", "))
	}
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Path to the catalog database")
	fs.Parse(args)

	catalogdb.RunMigrateCommand(fs.Args(), *dbPath)
}
