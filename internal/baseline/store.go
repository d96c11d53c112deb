// Package baseline records what every emitted task looked like at pull time.
//
// The markdown files stay authoritative; this database is a derived snapshot
// that only answers "what status did this task have when MASTER.md was last
// generated". Each pull replaces the previous snapshot.
package baseline

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the database or the requested pull is absent.
var ErrNotFound = errors.New("baseline not found")

// Entry is one task as emitted into the master document.
type Entry struct {
	Key            string
	Domain         string
	Source         string
	Project        string
	Status         string
	Text           string
	Position       int
	SourceModified time.Time
}

// Snapshot is the complete record of one pull.
type Snapshot struct {
	PullID   string
	PulledAt time.Time
	Entries  []Entry
}

// KeyCounts returns how many emitted tasks share each key.
func (s *Snapshot) KeyCounts() map[string]int {
	out := make(map[string]int, len(s.Entries))
	for _, e := range s.Entries {
		out[e.Key]++
	}
	return out
}

// Key derives the synthetic identity of a task from its location and content.
func Key(domain, source, status, text string) string {
	h := sha256.New()
	for _, part := range []string{domain, source, status, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Store handles SQLite operations for the baseline
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create baseline directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize baseline schema: %w", err)
	}
	return store, nil
}

// OpenReadOnly opens an existing database without creating or migrating it.
func OpenReadOnly(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pulls (
			pull_id TEXT PRIMARY KEY,
			pulled_at TEXT NOT NULL,
			task_count INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			pull_id TEXT NOT NULL,
			key TEXT NOT NULL,
			domain TEXT NOT NULL,
			source TEXT NOT NULL,
			project TEXT NOT NULL,
			status TEXT NOT NULL,
			text TEXT NOT NULL,
			position INTEGER NOT NULL,
			source_modified TEXT,
			FOREIGN KEY (pull_id) REFERENCES pulls(pull_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_entries_pull ON entries(pull_id);
		CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(pull_id, source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace discards any previous snapshot and stores snap.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin baseline transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear baseline entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pulls`); err != nil {
		return fmt.Errorf("failed to clear baseline pulls: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pulls (pull_id, pulled_at, task_count) VALUES (?, ?, ?)`,
		snap.PullID, formatTime(snap.PulledAt), len(snap.Entries),
	); err != nil {
		return fmt.Errorf("failed to record pull: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (pull_id, key, domain, source, project, status, text, position, source_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare baseline insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx,
			snap.PullID, e.Key, e.Domain, e.Source, e.Project, e.Status, e.Text, e.Position, formatTime(e.SourceModified),
		); err != nil {
			return fmt.Errorf("failed to record task %q: %w", e.Text, err)
		}
	}

	return tx.Commit()
}

// Load returns the snapshot for pullID, or ErrNotFound when the database
// holds a different pull.
func (s *Store) Load(ctx context.Context, pullID string) (*Snapshot, error) {
	snap := &Snapshot{PullID: pullID}

	var pulledAt string
	err := s.db.QueryRowContext(ctx, `SELECT pulled_at FROM pulls WHERE pull_id = ?`, pullID).Scan(&pulledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pull: %w", err)
	}
	snap.PulledAt = parseTime(pulledAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, domain, source, project, status, text, position, source_modified
		FROM entries WHERE pull_id = ? ORDER BY position
	`, pullID)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var modified sql.NullString
		if err := rows.Scan(&e.Key, &e.Domain, &e.Source, &e.Project, &e.Status, &e.Text, &e.Position, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan baseline entry: %w", err)
		}
		if modified.Valid {
			e.SourceModified = parseTime(modified.String)
		}
		snap.Entries = append(snap.Entries, e)
	}
	return snap, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
