package main

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
)

// The catalog is a CSV with one row per picture. Column names match the
// sheet the picture database is exported from.
type catalogRow struct {
	League   string `csv:"Liga"`
	Club     string `csv:"Klub"`
	ImageRef string `csv:"Link_Bezposredni"`
}

//go:embed assets/clubs.csv
var defaultCatalogCSV []byte

// Catalog is the read-only picture database: (league, club, image reference)
// rows loaded once at startup.
type Catalog struct {
	rows []*catalogRow
}

// loadCatalog reads the CSV at path, or the embedded default catalog when
// path is empty. Rows missing a league, club, or image reference are dropped
// rather than failing the whole file.
func loadCatalog(path string) (*Catalog, error) {
	data := defaultCatalogCSV
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	var rows []*catalogRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	kept := rows[:0]
	for _, row := range rows {
		if row.League == "" || row.Club == "" || row.ImageRef == "" {
			continue
		}
		kept = append(kept, row)
	}

	return &Catalog{rows: kept}, nil
}

// Leagues returns the sorted set of league names present in the catalog.
func (c *Catalog) Leagues() []string {
	seen := make(map[string]bool, len(c.rows))
	leagues := make([]string, 0, len(c.rows))
	for _, row := range c.rows {
		if seen[row.League] {
			continue
		}
		seen[row.League] = true
		leagues = append(leagues, row.League)
	}
	sort.Strings(leagues)
	return leagues
}

// Pool returns the (club, image reference) pairs for the selected leagues,
// in catalog order. An empty selection yields an empty pool.
func (c *Catalog) Pool(leagues []string) []PoolEntry {
	selected := make(map[string]bool, len(leagues))
	for _, league := range leagues {
		selected[league] = true
	}

	var pool []PoolEntry
	for _, row := range c.rows {
		if !selected[row.League] {
			continue
		}
		pool = append(pool, PoolEntry{Label: row.Club, ImageRef: row.ImageRef})
	}
	return pool
}
