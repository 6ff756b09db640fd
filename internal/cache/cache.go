// Package cache persists fetched BGG details in SQLite so repeat builds skip the API.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/gamerank/internal/bgg"
)

// ErrNotFound is returned by Get when no fresh entry exists.
var ErrNotFound = errors.New("cache: not found")

// DB wraps the SQLite connection.
type DB struct {
	conn   *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// Open opens (or creates) the cache at path. Entries older than maxAge are
// treated as missing; maxAge <= 0 keeps entries forever.
func Open(path string, maxAge time.Duration) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache.Open: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, maxAge: maxAge, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache.Open: init schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS details (
		id INTEGER PRIMARY KEY,
		weight REAL NOT NULL DEFAULT 0,
		is_expansion INTEGER NOT NULL DEFAULT 0,
		reimplements INTEGER NOT NULL DEFAULT 0,
		versions INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Get returns cached details for id.
func (db *DB) Get(ctx context.Context, id int) (*bgg.Details, error) {
	var (
		d         bgg.Details
		fetchedAt time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT weight, is_expansion, reimplements, versions, fetched_at FROM details WHERE id = ?`, id,
	).Scan(&d.Weight, &d.IsExpansion, &d.Reimplements, &d.Versions, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache.Get: %w", err)
	}
	if db.maxAge > 0 && db.now().Sub(fetchedAt) > db.maxAge {
		return nil, ErrNotFound
	}
	d.HasVersions = d.Versions > 1
	return &d, nil
}

// Put inserts or replaces the details for id.
func (db *DB) Put(ctx context.Context, id int, d *bgg.Details) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO details (id, weight, is_expansion, reimplements, versions, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		weight = excluded.weight,
		is_expansion = excluded.is_expansion,
		reimplements = excluded.reimplements,
		versions = excluded.versions,
		fetched_at = excluded.fetched_at
	`, id, d.Weight, d.IsExpansion, d.Reimplements, d.Versions, db.now().UTC())
	if err != nil {
		return fmt.Errorf("cache.Put: %w", err)
	}
	return nil
}

// Count returns the number of cached entries, fresh or not.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM details`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache.Count: %w", err)
	}
	return n, nil
}

// Lookup adapts Get to bgg.Store.
func (db *DB) Lookup(ctx context.Context, id int) (*bgg.Details, bool, error) {
	d, err := db.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// Save adapts Put to bgg.Store.
func (db *DB) Save(ctx context.Context, id int, d *bgg.Details) error {
	return db.Put(ctx, id, d)
}

var _ bgg.Store = (*DB)(nil)
