// Package pipeline turns a loaded snapshot into ranked, enriched tables.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/dshills/gamerank/internal/bgg"
	"github.com/dshills/gamerank/internal/preset"
	"github.com/dshills/gamerank/internal/rank"
	"github.com/dshills/gamerank/internal/score"
	"github.com/dshills/gamerank/internal/snapshot"
)

// Result holds the ranked tables of one batch.
type Result struct {
	Snapshot *snapshot.Snapshot
	// Ranked is every scored game in rank order.
	Ranked []rank.Entry
	// Recent and All are the truncated tables shown on the page.
	Recent []rank.Entry
	All    []rank.Entry
	// Failed counts records the estimator rejected.
	Failed int
}

// Rank scores every game in snap with the preset's estimator configuration,
// sorts them, and cuts the recent and all-years tables.
func Rank(ctx context.Context, snap *snapshot.Snapshot, p *preset.Preset, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := p.PriorConfig()

	aggs := make([]score.RatingAggregate, len(snap.Games))
	for i, g := range snap.Games {
		aggs[i] = g.Aggregate()
	}
	results, err := score.EstimateAll(ctx, aggs, cfg, p.Workers)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Rank: %w", err)
	}

	res := &Result{Snapshot: snap}
	entries := make([]rank.Entry, 0, len(results))
	for i, r := range results {
		g := snap.Games[i]
		if r.Err != nil {
			res.Failed++
			logger.Warn("game not scored", "key", g.Key(), "name", g.Name, "err", r.Err)
			continue
		}
		entries = append(entries, rank.Entry{
			Game:   g,
			Scored: r.Game,
			Wilson: rawWilson(g, cfg),
		})
	}
	rank.Sort(entries)

	res.Ranked = entries
	res.Recent = rank.Top(rank.SinceYear(entries, p.MinYear), p.Top)
	res.All = rank.Top(entries, p.Top)
	logger.Debug("ranked snapshot",
		"games", len(snap.Games), "scored", len(entries), "failed", res.Failed,
		"recent", len(res.Recent), "all", len(res.All))
	return res, nil
}

// rawWilson is the unsmoothed bound on the published average, or nil
// when the game has no votes.
func rawWilson(g snapshot.Game, cfg score.PriorConfig) *float64 {
	if g.UsersRated <= 0 {
		return nil
	}
	p := (g.Average - cfg.Scale.Min) / (cfg.Scale.Max - cfg.Scale.Min)
	p = math.Min(1, math.Max(0, p))
	w := score.Wilson(float64(g.UsersRated), p, cfg.Z)
	return &w
}

// DetailIDs returns the ids shown in either table, recent first, without
// duplicates. limit > 0 keeps only the first limit ids.
func (r *Result) DetailIDs(limit int) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, id := range append(rank.IDs(r.Recent), rank.IDs(r.All)...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// Enrich fetches details for the displayed games and attaches them to both
// tables. It returns the enriched entries in fetch order, for export.
func (r *Result) Enrich(ctx context.Context, f bgg.Fetcher, limit int, logger *slog.Logger) ([]rank.Entry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ids := r.DetailIDs(limit)
	logger.Info("fetching details", "ids", len(ids), "fetcher", f.Name())

	details, err := bgg.EnrichAll(ctx, f, ids, logger)
	attach(r.Recent, details)
	attach(r.All, details)
	if err != nil {
		return nil, fmt.Errorf("pipeline.Enrich: %w", err)
	}

	byID := make(map[int]rank.Entry, len(r.All)+len(r.Recent))
	for _, e := range append(r.Recent, r.All...) {
		byID[e.Game.ID] = e
	}
	var out []rank.Entry
	for _, id := range ids {
		if e, ok := byID[id]; ok && e.Details != nil {
			out = append(out, e)
		}
	}
	if missing := len(ids) - len(out); missing > 0 {
		logger.Warn("details unavailable", "count", missing)
	}
	return out, nil
}

func attach(entries []rank.Entry, details map[int]*bgg.Details) {
	for i := range entries {
		if d, ok := details[entries[i].Game.ID]; ok {
			entries[i].Details = d
		}
	}
}
