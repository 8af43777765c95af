// Package testutil provides shared test helpers for the SQLite track
// index used by the --from-db library source.
package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SchemaDDL is the canonical track index schema expected by the db
// library source.
const SchemaDDL = `
	CREATE TABLE tracks (
		uri TEXT PRIMARY KEY NOT NULL,
		artist TEXT,
		album TEXT,
		title TEXT,
		genre TEXT
	);
`

// Row is one seeded track index entry.
type Row struct {
	URI    string
	Artist string
	Album  string
	Title  string
	Genre  string
}

// CreateIndex writes a track index with the given rows into a temp
// directory and returns its path.
func CreateIndex(t *testing.T, rows []Row) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening track index: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(SchemaDDL); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO tracks (uri, artist, album, title, genre) VALUES (?, ?, ?, ?, ?)`,
			r.URI, nullable(r.Artist), nullable(r.Album), nullable(r.Title), nullable(r.Genre),
		)
		if err != nil {
			t.Fatalf("seeding track %s: %v", r.URI, err)
		}
	}
	return path
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Seed builds n rows with predictable URIs, for tests that only care
// about counts.
func Seed(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Row{URI: fmt.Sprintf("song_%03d.mp3", i)})
	}
	return rows
}
