// Package store persists notes, their input images, and flashcards in
// SQLite. Status-machine invariants are enforced here with guarded UPDATEs
// so no caller can bypass them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	notes "github.com/embelhq/embel/notes/internal/domain"
)

// Schema is applied by dbopen at connection time.
const Schema = `
CREATE TABLE IF NOT EXISTS notes (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	input_type       TEXT NOT NULL,
	text             TEXT NOT NULL DEFAULT '',
	settings         TEXT NOT NULL,
	enhanced_content TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	progress         INTEGER NOT NULL DEFAULT 0,
	progress_message TEXT NOT NULL DEFAULT '',
	status_error     TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS note_images (
	note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	idx     INTEGER NOT NULL,
	name    TEXT NOT NULL,
	mime    TEXT NOT NULL,
	data    BLOB NOT NULL,
	PRIMARY KEY (note_id, idx)
);

CREATE TABLE IF NOT EXISTS note_artifacts (
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	format     TEXT NOT NULL,
	location   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (note_id, format)
);

CREATE TABLE IF NOT EXISTS flashcards (
	id         TEXT PRIMARY KEY,
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	topic      TEXT NOT NULL DEFAULT '',
	term       TEXT NOT NULL,
	definition TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'manual',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flashcards_note ON flashcards(note_id);
`

// Store wraps the notes tables of a shared database handle.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Image is one stored input image for a note.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// CreateNote inserts a pending note with its input images in one
// transaction.
func (s *Store) CreateNote(ctx context.Context, n *notes.Note, images []Image) error {
	settings, err := json.Marshal(n.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	n.Status = notes.StatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, input_type, text, settings, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.InputType, n.Text, string(settings), n.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	for i, img := range images {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO note_images (note_id, idx, name, mime, data)
			VALUES (?, ?, ?, ?, ?)`,
			n.ID, i, img.Name, img.MIME, img.Data)
		if err != nil {
			return fmt.Errorf("insert image %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetNote loads a note scoped to its owner, with artifact locations.
func (s *Store) GetNote(ctx context.Context, userID, noteID string) (*notes.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, input_type, text, settings, enhanced_content,
		       status, progress, progress_message, status_error, created_at, updated_at
		FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	n, err := scanNote(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT format, location FROM note_artifacts WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var format, location string
		if err := rows.Scan(&format, &location); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if n.Artifacts == nil {
			n.Artifacts = make(map[notes.Format]string)
		}
		n.Artifacts[notes.Format(format)] = location
	}
	return n, rows.Err()
}

// GetNoteAnyUser loads a note without owner scoping, for pipeline workers
// that run outside a request context.
func (s *Store) GetNoteAnyUser(ctx context.Context, noteID string) (*notes.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, input_type, text, settings, enhanced_content,
		       status, progress, progress_message, status_error, created_at, updated_at
		FROM notes WHERE id = ?`, noteID)
	return scanNote(row)
}

// ListNotes returns the user's notes, newest first, without image payloads.
func (s *Store) ListNotes(ctx context.Context, userID string, limit int) ([]*notes.Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, input_type, text, settings, enhanced_content,
		       status, progress, progress_message, status_error, created_at, updated_at
		FROM notes WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []*notes.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNote removes a note and, via cascade, its images, artifacts and
// flashcards.
func (s *Store) DeleteNote(ctx context.Context, userID, noteID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notes.ErrNotFound
	}
	return nil
}

// Images returns the stored input images for a note in submission order.
func (s *Store) Images(ctx context.Context, noteID string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, mime, data FROM note_images WHERE note_id = ? ORDER BY idx`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var imgs []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Name, &img.MIME, &img.Data); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*notes.Note, error) {
	var n notes.Note
	var settings string
	err := row.Scan(&n.ID, &n.UserID, &n.InputType, &n.Text, &settings,
		&n.EnhancedContent, &n.Status, &n.Progress, &n.ProgressMessage,
		&n.StatusError, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notes.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &n.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &n, nil
}
