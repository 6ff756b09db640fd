package render

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dshills/gamerank/internal/rank"
	"github.com/dshills/gamerank/internal/snapshot"
)

var detailsHeader = []string{"id", "name", "weight", "is_expansion", "reimplements", "has_versions", "n_versions"}

// DetailsPath returns the details export path for a snapshot, placed in dir.
func DetailsPath(dir, snapshotPath string) string {
	return filepath.Join(dir, "details-"+snapshot.Stem(snapshotPath)+".csv")
}

// WriteDetailsCSV writes the fetched details of entries to path.
// Entries without details are skipped; if none remain, no file is created.
func WriteDetailsCSV(path string, entries []rank.Entry) (int, error) {
	var rows [][]string
	for _, e := range entries {
		d := e.Details
		if d == nil {
			continue
		}
		rows = append(rows, []string{
			e.Game.Key(),
			e.Game.Name,
			strconv.FormatFloat(d.Weight, 'f', -1, 64),
			strconv.FormatBool(d.IsExpansion),
			strconv.FormatBool(d.Reimplements),
			strconv.FormatBool(d.HasVersions),
			strconv.Itoa(d.Versions),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("render.WriteDetailsCSV: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(detailsHeader); err != nil {
		f.Close()
		return 0, fmt.Errorf("render.WriteDetailsCSV: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return 0, fmt.Errorf("render.WriteDetailsCSV: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("render.WriteDetailsCSV: %w", err)
	}
	return len(rows), nil
}
