package notes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embelhq/embel/enhance"
	"github.com/embelhq/embel/idgen"
	"github.com/embelhq/embel/notes/internal/store"
)

// Schema is the SQL applied at startup for the notes tables.
const Schema = store.Schema

// MinTopicPreviewLen is the minimum text length for topic suggestions;
// shorter snippets produce junk topics.
const MinTopicPreviewLen = 50

// MaxSuggestedTopics caps one preview response.
const MaxSuggestedTopics = 8

// EnqueueFunc schedules asynchronous processing for a created note. The
// pipeline provides it at wiring time; creation never blocks on processing.
type EnqueueFunc func(ctx context.Context, noteID string) error

// Service owns the note domain: validation, input routing, persistence,
// and the read side used by the pipeline and export layers.
type Service struct {
	store   *store.Store
	engine  enhance.TextEngine
	enqueue EnqueueFunc
	logger  *slog.Logger
}

func NewService(db *sql.DB, engine enhance.TextEngine, logger *slog.Logger) *Service {
	return &Service{
		store:  store.New(db),
		engine: engine,
		logger: logger,
	}
}

// SetEnqueue wires the processing queue in. Must be called before the first
// create; separated from the constructor because the pipeline needs the
// service to exist first.
func (s *Service) SetEnqueue(fn EnqueueFunc) { s.enqueue = fn }

// Submit validates the input and routes it to the matching creation path:
// text only, one image, or a joint multi-image request. It returns the
// pending note immediately; processing happens asynchronously.
func (s *Service) Submit(ctx context.Context, userID, text string, files []Upload, settings Settings) (*Note, error) {
	if len(files) == 0 {
		return s.CreateFromText(ctx, userID, text, settings)
	}
	if err := ValidateFiles(files); err != nil {
		return nil, err
	}
	if len(files) == 1 {
		return s.createFromImages(ctx, userID, InputSingleImage, files, settings)
	}
	return s.createFromImages(ctx, userID, InputMultiImage, files, settings)
}

// CreateFromText creates a pending note from typed text.
func (s *Service) CreateFromText(ctx context.Context, userID, text string, settings Settings) (*Note, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	n := &Note{
		ID:        idgen.Note(),
		UserID:    userID,
		InputType: InputText,
		Text:      text,
		Settings:  settings,
	}
	return s.create(ctx, n, nil)
}

// CreateFromSingleImage creates a pending note from exactly one image.
func (s *Service) CreateFromSingleImage(ctx context.Context, userID string, file Upload, settings Settings) (*Note, error) {
	return s.Submit(ctx, userID, "", []Upload{file}, settings)
}

// CreateFromMultipleImages creates a pending note whose images will be
// extracted in one joint request.
func (s *Service) CreateFromMultipleImages(ctx context.Context, userID string, files []Upload, settings Settings) (*Note, error) {
	if len(files) < 2 {
		return nil, fmt.Errorf("%w: multi-image submission needs at least two files", ErrInvalidInput)
	}
	return s.Submit(ctx, userID, "", files, settings)
}

func (s *Service) createFromImages(ctx context.Context, userID string, inputType InputType, files []Upload, settings Settings) (*Note, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	n := &Note{
		ID:        idgen.Note(),
		UserID:    userID,
		InputType: inputType,
		Settings:  settings,
	}
	images := make([]store.Image, len(files))
	for i, f := range files {
		images[i] = store.Image{
			Name: f.Name,
			MIME: allowedExts[strings.ToLower(extOf(f.Name))],
			Data: f.Data,
		}
	}
	return s.create(ctx, n, images)
}

func (s *Service) create(ctx context.Context, n *Note, images []store.Image) (*Note, error) {
	if err := s.store.CreateNote(ctx, n, images); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	if s.enqueue != nil {
		if err := s.enqueue(ctx, n.ID); err != nil {
			// The note exists but will never process; surface that rather
			// than returning a note that stays pending forever.
			_ = s.store.DeleteNote(ctx, n.UserID, n.ID)
			return nil, fmt.Errorf("enqueue processing: %w", err)
		}
	}
	s.logger.Info("note created",
		"note_id", n.ID, "input_type", n.InputType, "images", len(images))
	return n, nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// Get returns the note scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, noteID string) (*Note, error) {
	return s.store.GetNote(ctx, userID, noteID)
}

// List returns the user's notes, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*Note, error) {
	return s.store.ListNotes(ctx, userID, limit)
}

// Delete removes a note and everything attached to it.
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	return s.store.DeleteNote(ctx, userID, noteID)
}

// TopicPreview suggests focus topics for text the user has not submitted
// yet. Synchronous; no note is created.
func (s *Service) TopicPreview(ctx context.Context, text string) ([]string, error) {
	if len(strings.TrimSpace(text)) < MinTopicPreviewLen {
		return nil, fmt.Errorf("%w: need at least %d characters for topic suggestions", ErrInvalidInput, MinTopicPreviewLen)
	}
	topics, err := s.engine.SuggestTopics(ctx, text, MaxSuggestedTopics)
	if err != nil {
		return nil, fmt.Errorf("suggest topics: %w", err)
	}
	return topics, nil
}

// AddFlashcard attaches a manual card to a note the user owns.
func (s *Service) AddFlashcard(ctx context.Context, userID, noteID, topic, term, definition string) (*Flashcard, error) {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return nil, fmt.Errorf("%w: term and definition are required", ErrInvalidInput)
	}
	c := &Flashcard{
		ID:         idgen.Flashcard(),
		NoteID:     noteID,
		Topic:      strings.TrimSpace(topic),
		Term:       term,
		Definition: definition,
		Source:     "manual",
	}
	if err := s.store.AddFlashcards(ctx, userID, []*Flashcard{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ListFlashcards returns a note's cards.
func (s *Service) ListFlashcards(ctx context.Context, userID, noteID string) ([]*Flashcard, error) {
	return s.store.ListFlashcards(ctx, userID, noteID)
}

// DeleteFlashcard removes one card.
func (s *Service) DeleteFlashcard(ctx context.Context, userID, cardID string) error {
	return s.store.DeleteFlashcard(ctx, userID, cardID)
}
