package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joescharf/reviewgate/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteCache implements Cache using modernc.org/sqlite (pure Go, no CGO).
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) a SQLite cache at the given path.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all access through Go's connection pool, so
	// concurrent resolutions never see "database is locked".
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Migrate creates the cache schema. Idempotent.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ref_cache (
			key        TEXT PRIMARY KEY,
			tier       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create ref_cache table: %w", err)
	}
	return nil
}

// Get loads a cached resolution. Returns (nil, nil) on a miss; a corrupt
// payload is treated as a miss so a bad entry can be rewritten.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*models.ResolvedReference, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM ref_cache WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var ref models.ResolvedReference
	if err := json.Unmarshal([]byte(payload), &ref); err != nil {
		return nil, nil
	}
	return &ref, nil
}

// Put stores a resolution. The upsert makes concurrent same-key writes
// last-write-wins; the value is derived purely from the key, so either
// writer's value is correct.
func (s *SQLiteCache) Put(ctx context.Context, key string, ref models.ResolvedReference) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ref_cache (key, tier, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			tier = excluded.tier,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		key, string(ref.Tier), string(payload), ref.FetchedAt.UTC().Format("2006-01-02T15:04:05Z"))
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
