package catalogdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalogs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp())
	return store
}

func testTable(t *testing.T) *catalog.Table {
	t.Helper()
	tbl := catalog.New()
	require.NoError(t, tbl.AddColumn(catalog.NewIntColumn(catalog.ColIdx, []int64{0, 1})))
	require.NoError(t, tbl.AddColumn(catalog.NewStringColumn(catalog.ColName, []string{"093.225+01.234", "093.300+01.100"})))
	require.NoError(t, tbl.AddColumn(catalog.NewFloatColumn(catalog.ColXCen, []float64{93.225, 93.300})))
	require.NoError(t, tbl.AddColumn(catalog.NewFloatColumn(catalog.ColYCen, []float64{1.234, 1.100})))
	require.NoError(t, tbl.AddColumn(catalog.NewFloatColumn(catalog.ColMajor, []float64{2.5, 3.0})))
	require.NoError(t, tbl.AddColumn(catalog.NewFloatColumn(catalog.ColMinor, []float64{1.5, 2.0})))
	require.NoError(t, tbl.AddColumn(catalog.NewFloatColumn(catalog.ColPA, []float64{45, 90})))
	require.NoError(t, tbl.AddColumn(catalog.NewIntColumn(catalog.ColReject, []int64{0, 1})))

	flux := catalog.NewMaskedColumn("93GHz_dendro_sum", catalog.Float, 2)
	flux.SetFloat(0, 0.0042)
	require.NoError(t, tbl.AddColumn(flux))

	tbl.SortColumns()
	tbl.Reindex()
	return tbl
}

func TestMigrateUpDown(t *testing.T) {
	store := openTestStore(t)

	version, dirty, err := store.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	// Up again is a no-op.
	require.NoError(t, store.MigrateUp())

	require.NoError(t, store.MigrateDown())
	version, _, err = store.MigrateVersion()
	require.NoError(t, err)
	require.Equal(t, uint(0), version)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	tbl := testTable(t)

	runID, err := store.SaveRun(tbl, []string{"a.csv", "b.csv"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got, err := store.LoadRun(runID)
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows())

	name, ok := got.Column(catalog.ColName).String(0)
	require.True(t, ok)
	require.Equal(t, "093.225+01.234", name)

	x, ok := got.Column(catalog.ColXCen).Float(1)
	require.True(t, ok)
	require.Equal(t, 93.300, x)

	rej, ok := got.Column(catalog.ColReject).Float(1)
	require.True(t, ok)
	require.Equal(t, 1.0, rej)

	flux := got.Column("93GHz_dendro_sum")
	require.NotNil(t, flux)
	v, ok := flux.Float(0)
	require.True(t, ok)
	require.Equal(t, 0.0042, v)
	require.False(t, flux.IsValid(1), "masked flux cell must stay masked across the round trip")

	idx := got.Column(catalog.ColIndex)
	require.NotNil(t, idx)
	for i := 0; i < got.NumRows(); i++ {
		v, ok := idx.Float(i)
		require.True(t, ok)
		require.Equal(t, float64(i), v)
	}
}

func TestLoadRunUnknown(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LoadRun("no-such-run")
	require.Error(t, err)
}

func TestListRuns(t *testing.T) {
	store := openTestStore(t)
	tbl := testTable(t)

	id1, err := store.SaveRun(tbl, []string{"a.csv"})
	require.NoError(t, err)
	id2, err := store.SaveRun(tbl, []string{"b.csv", "c.csv"})
	require.NoError(t, err)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	require.Equal(t, []string{"a.csv"}, byID[id1].Inputs)
	require.Equal(t, []string{"b.csv", "c.csv"}, byID[id2].Inputs)
	require.Equal(t, 2, byID[id1].RowCount)
}
