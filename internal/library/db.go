package library

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
	"github.com/j0hnnybash/ashuffle/internal/rules"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// FromDB fills the chain from a local SQLite track index. The index is
// opened read-only and enumerated once; nothing is written back.
func FromDB(path string, rs []rules.Rule, chain *shuffle.Chain, groupBy []string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open track index: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping track index: %w", err)
	}
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		return fmt.Errorf("failed to set read-only mode: %w", err)
	}

	rows, err := db.Query(`SELECT uri, artist, album, title, genre FROM tracks ORDER BY uri`)
	if err != nil {
		return fmt.Errorf("failed to query track index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uri string
		var artist, album, title, genre sql.NullString
		if err := rows.Scan(&uri, &artist, &album, &title, &genre); err != nil {
			return fmt.Errorf("failed to scan track row: %w", err)
		}
		tags := make(map[string]string, 4)
		for tag, v := range map[string]sql.NullString{
			"artist": artist, "album": album, "title": title, "genre": genre,
		} {
			if v.Valid && v.String != "" {
				tags[tag] = v.String
			}
		}
		addTrack(chain, mpdclient.Track{URI: uri, Tags: tags}, rs, groupBy)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read track index: %w", err)
	}
	return nil
}
