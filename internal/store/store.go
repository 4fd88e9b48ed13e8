// Package store provides the SQLite-backed persistence layer for sessions,
// messages and scratch-pad slots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mkessel/prompter/backend/internal/model/chat"
	"github.com/mkessel/prompter/backend/internal/model/scratchpad"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSectionNotFound = errors.New("scratch pad section not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	sender     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

CREATE TABLE IF NOT EXISTS scratch_pad (
	id      INTEGER PRIMARY KEY,
	label   TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL
);
`

// Store wraps the SQLite handle. Session records are not locked across
// concurrent requests; two requests appending to the same session interleave
// in whatever timestamp order results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies the schema and seeds
// the scratch-pad slots with empty content if they are missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedScratchPad(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// seedScratchPad inserts the fixed slot set, keeping existing content.
func (s *Store) seedScratchPad() error {
	for i, label := range scratchpad.SeedLabels() {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO scratch_pad (id, label, content) VALUES (?, ?, '')`,
			i+1, label,
		)
		if err != nil {
			return fmt.Errorf("failed to seed scratch pad %q: %w", label, err)
		}
	}
	return nil
}

// CreateSession inserts a new session with the given title.
func (s *Store) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)`,
		session.ID, session.Title, formatTime(session.CreatedAt),
	)
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Store) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM sessions WHERE id = ?`, sessionID)

	var session chat.Session
	var createdAt string
	if err := row.Scan(&session.ID, &session.Title, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat.Session{}, ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	session.CreatedAt = parseTime(createdAt)
	return session, nil
}

// ListSessions returns session metadata, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0, 16)
	for rows.Next() {
		var session chat.Session
		var createdAt string
		if err := rows.Scan(&session.ID, &session.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.CreatedAt = parseTime(createdAt)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session rows iteration error: %w", err)
	}
	return sessions, nil
}

// AppendMessage records one turn for an existing session.
func (s *Store) AppendMessage(ctx context.Context, sessionID, sender, content string) (chat.Message, error) {
	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, message.Sender, message.Content, formatTime(message.CreatedAt),
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	return message, nil
}

// ListMessages returns a session's turns in timestamp order. The session must
// exist; an unknown id is ErrSessionNotFound, never an empty history.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender, content, created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var message chat.Message
		var createdAt string
		if err := rows.Scan(&message.ID, &message.SessionID, &message.Sender, &message.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		message.CreatedAt = parseTime(createdAt)
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message rows iteration error: %w", err)
	}
	return messages, nil
}

// ListScratchPad returns all slots in their fixed seed order.
func (s *Store) ListScratchPad(ctx context.Context) ([]scratchpad.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, content FROM scratch_pad ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scratch pad: %w", err)
	}
	defer rows.Close()

	sections := make([]scratchpad.Section, 0, 4)
	for rows.Next() {
		var section scratchpad.Section
		if err := rows.Scan(&section.Label, &section.Content); err != nil {
			return nil, fmt.Errorf("failed to scan scratch pad section: %w", err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scratch pad rows iteration error: %w", err)
	}
	return sections, nil
}

// SetScratchPad overwrites a slot's content wholesale. Slots are never created
// at runtime, so an unknown label is a client error.
func (s *Store) SetScratchPad(ctx context.Context, label, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scratch_pad SET content = ? WHERE label = ?`, content, label)
	if err != nil {
		return fmt.Errorf("failed to update scratch pad: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrSectionNotFound
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text so lexical order matches
// time order. RFC3339Nano would trim trailing zeros and break that.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
