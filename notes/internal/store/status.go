package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	notes "github.com/embelhq/embel/notes/internal/domain"
)

// Status transitions are enforced with guarded UPDATEs: the WHERE clause
// names the required current state, so a concurrent or out-of-order caller
// matches zero rows and gets ErrInvalidTransition instead of corrupting the
// machine.

// StartProcessing moves pending → processing.
func (s *Store) StartProcessing(ctx context.Context, noteID string) error {
	return s.transition(ctx, noteID, `
		UPDATE notes SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		notes.StatusProcessing, time.Now().UTC(), noteID, notes.StatusPending)
}

// Complete moves processing → completed, records the enhanced content, the
// possibly-updated source text (image notes gain their extraction here), and
// forces progress to 100.
func (s *Store) Complete(ctx context.Context, noteID, text, enhanced string) error {
	return s.transition(ctx, noteID, `
		UPDATE notes SET status = ?, text = ?, enhanced_content = ?,
		       progress = 100, progress_message = '', updated_at = ?
		WHERE id = ? AND status = ?`,
		notes.StatusCompleted, text, enhanced, time.Now().UTC(), noteID, notes.StatusProcessing)
}

// Fail moves processing → error, preserving the upstream failure message.
func (s *Store) Fail(ctx context.Context, noteID, message string) error {
	return s.transition(ctx, noteID, `
		UPDATE notes SET status = ?, status_error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		notes.StatusError, message, time.Now().UTC(), noteID, notes.StatusProcessing)
}

func (s *Store) transition(ctx context.Context, noteID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the note is gone or it is not in the required state.
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM notes WHERE id = ?`, noteID).Scan(&status)
		if err != nil {
			return notes.ErrNotFound
		}
		return fmt.Errorf("%w: note %s is %s", notes.ErrInvalidTransition, noteID, status)
	}
	return nil
}

// SetProgress records pipeline progress. Only processing notes accept
// updates, and MAX() keeps progress monotonic even when stage callbacks
// land out of order.
func (s *Store) SetProgress(ctx context.Context, noteID string, progress int, message string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99 // 100 is reserved for Complete
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE notes SET progress = MAX(progress, ?), progress_message = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		progress, message, time.Now().UTC(), noteID, notes.StatusProcessing)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// PutArtifact records an artifact location for a completed note. Recording
// is first-write-wins: a concurrent duplicate generation loses and the
// original location is returned.
func (s *Store) PutArtifact(ctx context.Context, noteID string, format notes.Format, location string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM notes WHERE id = ?`, noteID).Scan(&status)
	if err != nil {
		return "", notes.ErrNotFound
	}
	if notes.Status(status) != notes.StatusCompleted {
		return "", fmt.Errorf("%w: cannot attach artifact while %s", notes.ErrNotCompleted, status)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO note_artifacts (note_id, format, location, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (note_id, format) DO NOTHING`,
		noteID, format, location, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}

	var got string
	err = s.db.QueryRowContext(ctx,
		`SELECT location FROM note_artifacts WHERE note_id = ? AND format = ?`,
		noteID, format).Scan(&got)
	if err != nil {
		return "", fmt.Errorf("read artifact back: %w", err)
	}
	return got, nil
}

// Artifact returns the recorded location for a format, or "" when absent.
func (s *Store) Artifact(ctx context.Context, noteID string, format notes.Format) (string, error) {
	var location string
	err := s.db.QueryRowContext(ctx,
		`SELECT location FROM note_artifacts WHERE note_id = ? AND format = ?`,
		noteID, format).Scan(&location)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query artifact: %w", err)
	}
	return location, nil
}
