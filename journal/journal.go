// Package journal records every expression evaluated by a monitor session in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one evaluation. Value is only meaningful when OK is set.
type Entry struct {
	ID         int64     `json:"id"`
	Session    string    `json:"session"`
	Source     string    `json:"source"` // console, rpc or web
	Expression string    `json:"expression"`
	Value      uint64    `json:"value"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

func DefaultPath() string {
	return "./data/journal.db"
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Journal, error) {
	if path == "" {
		path = DefaultPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'console',
		expression TEXT NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		ok INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session);
	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at DESC);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Record stores e and fills in its ID and, when unset, CreatedAt.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Session == "" {
		return fmt.Errorf("session is required")
	}
	if e.Source == "" {
		e.Source = "console"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	// sqlite integers are signed, the bit pattern is stored as is
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO evaluations (session, source, expression, value, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Session, e.Source, e.Expression, int64(e.Value), e.OK, e.Error, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read evaluation id: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, source, expression, value, ok, error, created_at
		FROM evaluations ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// BySession returns up to limit entries of one session, newest first.
func (j *Journal) BySession(ctx context.Context, session string, limit int) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, source, expression, value, ok, error, created_at
		FROM evaluations WHERE session = ? ORDER BY id DESC LIMIT ?
	`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var count int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var e Entry
		var value int64
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &e.Expression, &value, &e.OK, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		e.Value = uint64(value)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
