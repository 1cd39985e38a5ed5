package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Slot is the client-side persisted session slot: a single-row SQLite
// table holding the serialized session document, so a restarted gateway
// resumes the session it had before.
type Slot struct {
	db *sql.DB
}

// OpenSlot opens (creating if needed) the slot database at path.
func OpenSlot(path string) (*Slot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session slot: %w", err)
	}

	// Single writer; concurrent opens would corrupt the slot semantics.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS session_slot (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing session slot: %w", err)
	}

	return &Slot{db: db}, nil
}

// Load returns the persisted session document, or "" if the slot is empty.
func (s *Slot) Load() (string, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM session_slot WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading session slot: %w", err)
	}
	return doc, nil
}

// Save replaces the persisted session document.
func (s *Slot) Save(doc string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_slot (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		doc, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving session slot: %w", err)
	}
	return nil
}

// Clear empties the slot.
func (s *Slot) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session_slot WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing session slot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Slot) Close() error {
	return s.db.Close()
}
