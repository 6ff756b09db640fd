// Package rank orders scored games and classifies them for display.
package rank

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dshills/gamerank/internal/bgg"
	"github.com/dshills/gamerank/internal/score"
	"github.com/dshills/gamerank/internal/snapshot"
)

// Entry is a snapshot row together with everything derived from it.
type Entry struct {
	Game   snapshot.Game
	Scored score.ScoredGame
	// Wilson is the unsmoothed lower bound; nil when the game has no votes.
	Wilson  *float64
	Details *bgg.Details
}

// Ranked is an Entry with its 1-based position in a table.
type Ranked struct {
	Position int
	Entry
}

// Sort orders entries by score descending, then vote count descending, then
// name by Unicode collation, then key. The result is a strict total order.
func Sort(entries []Entry) {
	col := collate.New(language.Und, collate.Loose)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Scored.Score != b.Scored.Score {
			return a.Scored.Score > b.Scored.Score
		}
		if a.Game.UsersRated != b.Game.UsersRated {
			return a.Game.UsersRated > b.Game.UsersRated
		}
		if c := col.CompareString(a.Game.Name, b.Game.Name); c != 0 {
			return c < 0
		}
		if a.Game.Name != b.Game.Name {
			return a.Game.Name < b.Game.Name
		}
		return a.Game.Key() < b.Game.Key()
	})
}

// SinceYear returns the entries published in year or later.
func SinceYear(entries []Entry, year int) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Game.Year >= year {
			out = append(out, e)
		}
	}
	return out
}

// Top returns a copy of the first n entries; n <= 0 keeps all.
func Top(entries []Entry, n int) []Entry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, n)
	copy(out, entries[:n])
	return out
}

// Assign numbers entries from 1 in their current order.
func Assign(entries []Entry) []Ranked {
	out := make([]Ranked, len(entries))
	for i, e := range entries {
		out[i] = Ranked{Position: i + 1, Entry: e}
	}
	return out
}

// IDs returns the BGG ids of entries, skipping rows without one.
func IDs(entries []Entry) []int {
	var ids []int
	for _, e := range entries {
		if e.Game.ID > 0 {
			ids = append(ids, e.Game.ID)
		}
	}
	return ids
}
