// Package regions writes DS9-style ellipse region files for source
// catalogs.
package regions

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/skymap-data/sourcecat/internal/catalog"
)

// Save writes one ellipse region per catalog row to a DS9 region file,
// prefixed with an icrs coordinate-frame header. Paths without a .reg
// extension are corrected with a warning. When skipRejects is set,
// rejected rows are omitted.
func Save(t *catalog.Table, path string, skipRejects bool) error {
	if filepath.Ext(path) != ".reg" {
		log.Printf("regions: invalid or missing file extension on %q, self-correcting", path)
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".reg"
	}

	for _, name := range []string{
		catalog.ColXCen, catalog.ColYCen,
		catalog.ColMajor, catalog.ColMinor, catalog.ColPA,
	} {
		if !t.HasColumn(name) {
			return fmt.Errorf("regions: catalog missing column %q", name)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("icrs\n"); err != nil {
		return err
	}

	nameCol := t.Column(catalog.ColName)
	for i := 0; i < t.NumRows(); i++ {
		if skipRejects && catalog.Rejected(t, i) {
			continue
		}
		x, okx := t.Column(catalog.ColXCen).Float(i)
		y, oky := t.Column(catalog.ColYCen).Float(i)
		major, okmj := t.Column(catalog.ColMajor).Float(i)
		minor, okmn := t.Column(catalog.ColMinor).Float(i)
		pa, okpa := t.Column(catalog.ColPA).Float(i)
		if !okx || !oky || !okmj || !okmn || !okpa {
			return fmt.Errorf("regions: row %d has masked geometry", i)
		}
		name := ""
		if nameCol != nil {
			name, _ = nameCol.String(i)
		}
		if _, err := fmt.Fprintf(w, "ellipse(%v, %v, %v, %v, %v) # text={%s}\n",
			x, y, major/2, minor/2, pa, name); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
