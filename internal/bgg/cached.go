package bgg

import (
	"context"
	"log/slog"
)

// Store persists fetched details between runs.
type Store interface {
	Lookup(ctx context.Context, id int) (*Details, bool, error)
	Save(ctx context.Context, id int, d *Details) error
}

// Cached wraps a Fetcher with a Store. Store failures are logged and never
// fail the fetch.
type Cached struct {
	Fetcher Fetcher
	Store   Store
	Logger  *slog.Logger
}

// Name reports the wrapped fetcher with a cache suffix.
func (c *Cached) Name() string { return c.Fetcher.Name() + "+cache" }

// Fetch serves id from the store when present, else fetches and saves it.
func (c *Cached) Fetch(ctx context.Context, id int) (*Details, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d, ok, err := c.Store.Lookup(ctx, id)
	switch {
	case err != nil:
		logger.Warn("details cache lookup failed", "id", id, "err", err)
	case ok:
		return d, nil
	}

	d, err = c.Fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Store.Save(ctx, id, d); err != nil {
		logger.Warn("details cache save failed", "id", id, "err", err)
	}
	return d, nil
}
