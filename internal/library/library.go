// Package library enumerates candidate tracks and feeds the ones the rule
// set accepts into the shuffle chain. Three sources exist: the MPD
// database, a flat URI list, and a local SQLite track index.
package library

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/j0hnnybash/ashuffle/internal/mpdclient"
	"github.com/j0hnnybash/ashuffle/internal/rules"
	"github.com/j0hnnybash/ashuffle/internal/shuffle"
)

// FromMPD fills the chain from the server's database.
func FromMPD(client mpdclient.Client, rs []rules.Rule, chain *shuffle.Chain, groupBy []string) error {
	tracks, err := client.Library()
	if err != nil {
		return fmt.Errorf("listing mpd library: %w", err)
	}
	for _, t := range tracks {
		addTrack(chain, t, rs, groupBy)
	}
	return nil
}

// FromFile fills the chain from a newline-separated URI list. With check
// set, only URIs present in the server's library are added, filtered by
// the rule set using the library's tags; without it, lines are added
// verbatim and the client may be nil.
func FromFile(r io.Reader, client mpdclient.Client, rs []rules.Rule, chain *shuffle.Chain, check bool, groupBy []string) error {
	var index map[string]mpdclient.Track
	if check {
		tracks, err := client.Library()
		if err != nil {
			return fmt.Errorf("listing mpd library: %w", err)
		}
		index = make(map[string]mpdclient.Track, len(tracks))
		for _, t := range tracks {
			index[t.URI] = t
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		uri := strings.TrimSpace(scanner.Text())
		if uri == "" {
			continue
		}
		if !check {
			chain.Add(uri)
			continue
		}
		t, ok := index[uri]
		if !ok {
			continue // not in the library, nothing to play
		}
		addTrack(chain, t, rs, groupBy)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading track list: %w", err)
	}
	return nil
}

// addTrack applies the rule set and inserts the track into its pool.
func addTrack(chain *shuffle.Chain, t mpdclient.Track, rs []rules.Rule, groupBy []string) {
	if !rules.Accepted(rs, t.Tags) {
		return
	}
	key := groupKey(t.Tags, groupBy)
	if key == "" {
		chain.Add(t.URI)
		return
	}
	chain.Add(t.URI, shuffle.WithGroup(key))
}

// groupKey joins the values of the group-by tags. Tracks carrying none of
// the tags fall into the default pool.
func groupKey(tags map[string]string, groupBy []string) string {
	if len(groupBy) == 0 {
		return ""
	}
	parts := make([]string, 0, len(groupBy))
	for _, tag := range groupBy {
		if v, ok := tags[strings.ToLower(tag)]; ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\x1f")
}
