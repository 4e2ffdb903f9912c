// Package history records every normalized promotion candidate in SQLite
// for longevity analysis and the status endpoint. It is an observability
// aid, not pipeline state: the dedup decision lives in the seen-set.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/promo"
)

const schema = `
CREATE TABLE IF NOT EXISTS promotions (
	fingerprint   TEXT PRIMARY KEY,
	program       TEXT NOT NULL,
	bonus_pct     INTEGER NOT NULL CHECK (bonus_pct > 0),
	url           TEXT NOT NULL,
	source_name   TEXT NOT NULL,
	title         TEXT,
	description   TEXT,
	discovered_at TIMESTAMP NOT NULL,
	last_seen_at  TIMESTAMP NOT NULL,
	times_seen    INTEGER NOT NULL DEFAULT 1,
	notified      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_promotions_discovered_at
	ON promotions (discovered_at DESC);
`

// Record is one stored promotion row.
type Record struct {
	Fingerprint  string    `db:"fingerprint" json:"fingerprint"`
	Program      string    `db:"program" json:"program"`
	BonusPct     int       `db:"bonus_pct" json:"bonus_pct"`
	URL          string    `db:"url" json:"url"`
	SourceName   string    `db:"source_name" json:"source_name"`
	Title        string    `db:"title" json:"title,omitempty"`
	Description  string    `db:"description" json:"description,omitempty"`
	DiscoveredAt time.Time `db:"discovered_at" json:"discovered_at"`
	LastSeenAt   time.Time `db:"last_seen_at" json:"last_seen_at"`
	TimesSeen    int       `db:"times_seen" json:"times_seen"`
	Notified     bool      `db:"notified" json:"notified"`
}

// Store is the promotion history contract.
type Store interface {
	// Record inserts a candidate, or refreshes last_seen_at on conflict.
	Record(ctx context.Context, p promo.Promo, fingerprint string, notified bool) error
	// Recent returns the newest records, most recent first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Close releases the store.
	Close() error
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

// Open opens (and if needed initializes) the SQLite history database.
func Open(path string) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, execErr := db.Exec(schema); execErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", execErr)
	}
	return &SQLStore{db: db}, nil
}

// Record inserts the candidate. A repeated fingerprint refreshes
// last_seen_at and the seen counter so promotion longevity can be derived
// later; the notified flag only ever goes from 0 to 1.
func (s *SQLStore) Record(ctx context.Context, p promo.Promo, fingerprint string, notified bool) error {
	const query = `
INSERT INTO promotions (
	fingerprint, program, bonus_pct, url, source_name,
	title, description, discovered_at, last_seen_at, notified
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (fingerprint) DO UPDATE SET
	last_seen_at = excluded.last_seen_at,
	times_seen   = times_seen + 1,
	notified     = MAX(notified, excluded.notified)`

	now := time.Now().UTC()
	discovered := p.DiscoveredAt
	if discovered.IsZero() {
		discovered = now
	}

	_, err := s.db.ExecContext(ctx, query,
		fingerprint, p.Program, p.BonusPct, p.URL, p.SourceName,
		p.Title, p.Description, discovered.UTC(), now, boolToInt(notified))
	if err != nil {
		return fmt.Errorf("failed to record promotion: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT fingerprint, program, bonus_pct, url, source_name,
       COALESCE(title, '') AS title,
       COALESCE(description, '') AS description,
       discovered_at, last_seen_at, times_seen, notified
FROM promotions
ORDER BY discovered_at DESC
LIMIT ?`

	var records []Record
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NoopStore discards history. Used when no database is configured or the
// configured one failed to open.
type NoopStore struct{}

// Record discards the candidate.
func (NoopStore) Record(context.Context, promo.Promo, string, bool) error { return nil }

// Recent returns no records.
func (NoopStore) Recent(context.Context, int) ([]Record, error) { return nil, nil }

// Close does nothing.
func (NoopStore) Close() error { return nil }

// OpenOrNoop opens the history store, degrading to a noop with a warning
// when the path is empty or the database cannot be opened.
func OpenOrNoop(path string, log logger.Interface) Store {
	if path == "" {
		return NoopStore{}
	}
	store, err := Open(path)
	if err != nil {
		log.Warn("History database unavailable, continuing without history",
			"path", path,
			"error", err)
		return NoopStore{}
	}
	return store
}
