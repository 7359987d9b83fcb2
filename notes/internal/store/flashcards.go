package store

import (
	"context"
	"fmt"
	"time"

	notes "github.com/embelhq/embel/notes/internal/domain"
)

// AddFlashcards inserts cards for a note the user owns. Cards attach
// regardless of the note's processing status.
func (s *Store) AddFlashcards(ctx context.Context, userID string, cards []*notes.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	noteID := cards[0].NoteID

	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM notes WHERE id = ?`, noteID).Scan(&owner)
	if err != nil || owner != userID {
		return notes.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range cards {
		c.CreatedAt = now
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flashcards (id, note_id, topic, term, definition, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.NoteID, c.Topic, c.Term, c.Definition, c.Source, now)
		if err != nil {
			return fmt.Errorf("insert flashcard: %w", err)
		}
	}
	return tx.Commit()
}

// AddGeneratedFlashcards inserts pipeline-produced cards without owner
// scoping; the worker already operates on a note it loaded.
func (s *Store) AddGeneratedFlashcards(ctx context.Context, cards []*notes.Flashcard) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, c := range cards {
		c.CreatedAt = now
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flashcards (id, note_id, topic, term, definition, source, created_at)
			VALUES (?, ?, ?, ?, ?, 'ai', ?)`,
			c.ID, c.NoteID, c.Topic, c.Term, c.Definition, now)
		if err != nil {
			return fmt.Errorf("insert flashcard: %w", err)
		}
	}
	return tx.Commit()
}

// ListFlashcards returns a note's cards in creation order.
func (s *Store) ListFlashcards(ctx context.Context, userID, noteID string) ([]*notes.Flashcard, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM notes WHERE id = ?`, noteID).Scan(&owner)
	if err != nil || owner != userID {
		return nil, notes.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, topic, term, definition, source, created_at
		FROM flashcards WHERE note_id = ? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query flashcards: %w", err)
	}
	defer rows.Close()

	var out []*notes.Flashcard
	for rows.Next() {
		var c notes.Flashcard
		if err := rows.Scan(&c.ID, &c.NoteID, &c.Topic, &c.Term, &c.Definition, &c.Source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteFlashcard removes one card, scoped through note ownership.
func (s *Store) DeleteFlashcard(ctx context.Context, userID, cardID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM flashcards WHERE id = ? AND note_id IN
		(SELECT id FROM notes WHERE user_id = ?)`, cardID, userID)
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notes.ErrNotFound
	}
	return nil
}
