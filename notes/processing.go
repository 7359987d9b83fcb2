package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/embelhq/embel/enhance"
	"github.com/embelhq/embel/idgen"
)

// Pipeline-facing operations. The worker runs outside any request, so these
// are keyed by note ID alone; owner scoping happened at submission.

// LoadForProcessing returns the note and its stored input images.
func (s *Service) LoadForProcessing(ctx context.Context, noteID string) (*Note, []enhance.Image, error) {
	n, err := s.store.GetNoteAnyUser(ctx, noteID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.store.Images(ctx, noteID)
	if err != nil {
		return nil, nil, err
	}
	images := make([]enhance.Image, len(stored))
	for i, img := range stored {
		images[i] = enhance.Image{Name: img.Name, MIME: img.MIME, Data: img.Data}
	}
	return n, images, nil
}

// MarkProcessing transitions a pending note to processing. A note already
// processing is left alone so a retried job can resume.
func (s *Service) MarkProcessing(ctx context.Context, noteID string) error {
	err := s.store.StartProcessing(ctx, noteID)
	if errors.Is(err, ErrInvalidTransition) {
		n, gerr := s.store.GetNoteAnyUser(ctx, noteID)
		if gerr == nil && n.Status == StatusProcessing {
			return nil
		}
	}
	return err
}

// ReportProgress records a pipeline stage. Regressions are ignored by the
// store, so stale callbacks are safe.
func (s *Service) ReportProgress(ctx context.Context, noteID string, progress int, message string) error {
	return s.store.SetProgress(ctx, noteID, progress, message)
}

// CompleteProcessing finishes a note with its final text and enhanced
// content. Progress becomes 100 atomically with the transition.
func (s *Service) CompleteProcessing(ctx context.Context, noteID, text, enhanced string) error {
	return s.store.Complete(ctx, noteID, text, enhanced)
}

// FailProcessing moves a processing note to the error state, preserving the
// upstream failure message for the client.
func (s *Service) FailProcessing(ctx context.Context, noteID, message string) error {
	return s.store.Fail(ctx, noteID, message)
}

// SaveGeneratedFlashcards stores AI-produced cards for a note.
func (s *Service) SaveGeneratedFlashcards(ctx context.Context, noteID string, cards []enhance.Card) error {
	out := make([]*Flashcard, len(cards))
	for i, c := range cards {
		out[i] = &Flashcard{
			ID:         idgen.Flashcard(),
			NoteID:     noteID,
			Topic:      c.Topic,
			Term:       c.Term,
			Definition: c.Definition,
			Source:     "ai",
		}
	}
	return s.store.AddGeneratedFlashcards(ctx, out)
}

// Export-facing operations.

// ExportSource returns the enhanced content and settings for artifact
// generation. Only completed notes have export sources.
func (s *Service) ExportSource(ctx context.Context, userID, noteID string) (*Note, error) {
	n, err := s.store.GetNote(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, n.Status)
	}
	return n, nil
}

// ArtifactLocation returns the recorded artifact location, or "" when the
// format has not been generated yet.
func (s *Service) ArtifactLocation(ctx context.Context, userID, noteID string, format Format) (string, error) {
	if _, err := s.store.GetNote(ctx, userID, noteID); err != nil {
		return "", err
	}
	return s.store.Artifact(ctx, noteID, format)
}

// RecordArtifact persists a generated artifact location. First write wins;
// the returned location is authoritative.
func (s *Service) RecordArtifact(ctx context.Context, noteID string, format Format, location string) (string, error) {
	return s.store.PutArtifact(ctx, noteID, format, location)
}
