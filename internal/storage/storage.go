package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// favoritesKey is the single kv entry holding the serialized favorite
// session ids.
const favoritesKey = "favorites"

// SnapshotSummary holds the metadata for a directory snapshot.
type SnapshotSummary struct {
	ID           int64
	Rev          int
	Label        string
	CreatedAt    time.Time
	SessionCount int
}

// SnapshotSession is one session entry inside a snapshot payload.
type SnapshotSession struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Bucket    string `json:"bucket"` // "active", "favorites", "archived"
	Content   string `json:"content,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
}

// SnapshotFull is a snapshot with its decoded session payload.
type SnapshotFull struct {
	SnapshotSummary
	Sessions []SnapshotSession
}

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema: kv store and directory snapshots",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    name   TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
    id             INTEGER PRIMARY KEY,
    rev            INTEGER NOT NULL UNIQUE,
    label          TEXT,
    created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    session_count  INTEGER NOT NULL,
    payload        BLOB NOT NULL
);`,
	},
}

// DefaultDBPath returns the standard location of the labbook database.
func DefaultDBPath() (string, error) {
	if dir := os.Getenv("LABBOOK_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "labbook.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "labbook", "labbook.db"), nil
}

// OpenDB opens (or creates) a SQLite database at the given path.
// It creates parent directories if needed, enables foreign keys and WAL
// mode, and runs any pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// runMigrations ensures the schema_migrations table exists, detects which
// migrations have already been applied, and runs any pending ones.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// Store wraps the database handle with the client-state operations. It
// implements directory.FavoriteStore.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadFavorites reads the durable favorite set. A missing or corrupt
// entry is equivalent to an empty set — startup must never fail on it.
func (s *Store) LoadFavorites() ([]int64, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM kv WHERE name = ?", favoritesKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// Corrupt entry: fail soft to an empty set.
		return nil, fmt.Errorf("decode favorites: %w", err)
	}
	return ids, nil
}

// SaveFavorites rewrites the favorite set in full. Called on every
// toggle; the set is small enough that incremental updates are not worth
// the consistency risk.
func (s *Store) SaveFavorites(ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO kv (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		favoritesKey, string(raw),
	)
	if err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	return nil
}

// CreateSnapshot persists a directory snapshot and returns its rev
// number. The session payload is stored lz4-compressed.
func (s *Store) CreateSnapshot(sessions []SnapshotSession, label string) (int, error) {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	payload, err := Compress(raw)
	if err != nil {
		return 0, fmt.Errorf("compress snapshot: %w", err)
	}

	var maxRev sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(rev) FROM snapshots").Scan(&maxRev); err != nil {
		return 0, fmt.Errorf("next rev: %w", err)
	}
	rev := int(maxRev.Int64) + 1

	_, err = s.db.Exec(
		"INSERT INTO snapshots (rev, label, session_count, payload) VALUES (?, ?, ?, ?)",
		rev, label, len(sessions), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return rev, nil
}

// ListSnapshots returns snapshot metadata, oldest first.
func (s *Store) ListSnapshots() ([]SnapshotSummary, error) {
	rows, err := s.db.Query(
		"SELECT id, rev, COALESCE(label, ''), created_at, session_count FROM snapshots ORDER BY rev",
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		if err := rows.Scan(&sum.ID, &sum.Rev, &sum.Label, &sum.CreatedAt, &sum.SessionCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetSnapshot loads one snapshot with its decoded payload. rev 0 means
// the latest; a nil result means no snapshot exists.
func (s *Store) GetSnapshot(rev int) (*SnapshotFull, error) {
	query := "SELECT id, rev, COALESCE(label, ''), created_at, session_count, payload FROM snapshots"
	args := []any{}
	if rev > 0 {
		query += " WHERE rev = ?"
		args = append(args, rev)
	} else {
		query += " ORDER BY rev DESC LIMIT 1"
	}

	var full SnapshotFull
	var payload []byte
	err := s.db.QueryRow(query, args...).Scan(
		&full.ID, &full.Rev, &full.Label, &full.CreatedAt, &full.SessionCount, &payload,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	raw, err := Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %d: %w", full.Rev, err)
	}
	if err := json.Unmarshal(raw, &full.Sessions); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", full.Rev, err)
	}
	return &full, nil
}

// DeleteSnapshot removes one snapshot by rev.
func (s *Store) DeleteSnapshot(rev int) error {
	res, err := s.db.Exec("DELETE FROM snapshots WHERE rev = ?", rev)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("snapshot #%d not found", rev)
	}
	return nil
}
