package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// SQLiteStore keeps transcripts in a SQLite file. A destructive reset wipes every session.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join("data", "sessions.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		segment_index INTEGER NOT NULL,
		segment_total INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_session_id ON events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one displayed event.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, event entities.DisplayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (session_id, role, text, segment_index, segment_total)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, string(event.Role), event.Text, event.Index, event.Total)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// History returns a session's events in insertion order.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]entities.DisplayEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text, segment_index, segment_total
		FROM events
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []entities.DisplayEvent
	for rows.Next() {
		var event entities.DisplayEvent
		var role string
		if err := rows.Scan(&role, &event.Text, &event.Index, &event.Total); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		event.Role = entities.Role(role)
		events = append(events, event)
	}
	return events, rows.Err()
}

// Clear removes all stored sessions.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM events")
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
