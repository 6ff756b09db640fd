// Package bgg fetches per-game details from the BoardGameGeek XML API.
package bgg

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotFound is returned when the API has no item for the requested id.
var ErrNotFound = errors.New("bgg: not found")

// Details holds the metadata shown next to a ranked game.
type Details struct {
	Weight       float64 `json:"weight"`
	IsExpansion  bool    `json:"is_expansion"`
	Reimplements bool    `json:"reimplements"`
	HasVersions  bool    `json:"has_versions"`
	Versions     int     `json:"n_versions"`
}

// Fetcher retrieves details for one game id.
type Fetcher interface {
	Fetch(ctx context.Context, id int) (*Details, error)
	Name() string
}

// EnrichAll fetches details for each id in order. Failures for individual ids
// are logged and skipped; only context cancellation aborts the run.
func EnrichAll(ctx context.Context, f Fetcher, ids []int, logger *slog.Logger) (map[int]*Details, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[int]*Details, len(ids))
	for i, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		d, err := f.Fetch(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			logger.Warn("details fetch failed", "id", id, "fetcher", f.Name(), "err", err)
			continue
		}
		out[id] = d
		logger.Debug("details fetched", "id", id, "n", i+1, "of", len(ids))
	}
	return out, nil
}
