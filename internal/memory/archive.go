package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchivedSession is a completed coaching session's record.
type ArchivedSession struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Summary        string    `json:"summary"`
	Turns          int       `json:"turns"`
	CreatedAt      time.Time `json:"created_at"`
}

// Archive stores completed session summaries in SQLite so past sessions
// stay searchable after their conversations end.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	a, err := NewArchive(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewArchive wraps an existing database handle. Tests pass an
// in-memory database here.
func NewArchive(db *sql.DB) (*Archive, error) {
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			turns INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_conversation
			ON sessions(conversation_id);
	`)
	return err
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save records a completed session.
func (a *Archive) Save(s ArchivedSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	} else {
		s.CreatedAt = s.CreatedAt.UTC()
	}

	_, err := a.db.Exec(`
		INSERT INTO sessions (id, conversation_id, summary, turns, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.ConversationID, s.Summary, s.Turns, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// List returns archived sessions, most recent first, optionally
// filtered by a substring search over the summary.
func (a *Archive) List(search string, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if search != "" {
		rows, err = a.db.Query(`
			SELECT id, conversation_id, summary, turns, created_at
			FROM sessions
			WHERE summary LIKE ?
			ORDER BY created_at DESC
			LIMIT ?`,
			"%"+search+"%", limit,
		)
	} else {
		rows, err = a.db.Query(`
			SELECT id, conversation_id, summary, turns, created_at
			FROM sessions
			ORDER BY created_at DESC
			LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []ArchivedSession
	for rows.Next() {
		var s ArchivedSession
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.Summary, &s.Turns, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
