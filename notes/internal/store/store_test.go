package store

import (
	"context"
	"errors"
	"testing"

	"github.com/embelhq/embel/dbopen"
	"github.com/embelhq/embel/idgen"
	notes "github.com/embelhq/embel/notes/internal/domain"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return New(db)
}

func newPendingNote(t *testing.T, s *Store, userID string) *notes.Note {
	t.Helper()
	n := &notes.Note{
		ID:        idgen.Note(),
		UserID:    userID,
		InputType: notes.InputText,
		Text:      "raw lecture notes",
		Settings:  notes.Settings{AddHeaders: true},
	}
	if err := s.CreateNote(context.Background(), n, nil); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	return n
}

func TestNoteLifecycle(t *testing.T) {
	// WHAT: A note walks pending → processing → completed with its content.
	s := newTestStore(t)
	ctx := context.Background()
	n := newPendingNote(t, s, "u1")

	if err := s.StartProcessing(ctx, n.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := s.Complete(ctx, n.ID, "raw lecture notes", "# Enhanced\n\ncontent"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := s.GetNote(ctx, "u1", n.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Status != notes.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100 on completion", got.Progress)
	}
	if got.EnhancedContent == "" {
		t.Error("enhanced content missing after completion")
	}
}

func TestTransitionsRejectIllegalMoves(t *testing.T) {
	// WHAT: Every move outside pending → processing → {completed, error}
	// fails with ErrInvalidTransition.
	// WHY: Pollers rely on terminal states being terminal; a completed note
	// flipping back to processing would hang every waiting client.
	s := newTestStore(t)
	ctx := context.Background()

	n := newPendingNote(t, s, "u1")
	if err := s.Complete(ctx, n.ID, "", "x"); !errors.Is(err, notes.ErrInvalidTransition) {
		t.Errorf("pending→completed = %v, want ErrInvalidTransition", err)
	}
	if err := s.Fail(ctx, n.ID, "boom"); !errors.Is(err, notes.ErrInvalidTransition) {
		t.Errorf("pending→error = %v, want ErrInvalidTransition", err)
	}

	if err := s.StartProcessing(ctx, n.ID); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := s.StartProcessing(ctx, n.ID); !errors.Is(err, notes.ErrInvalidTransition) {
		t.Errorf("processing→processing = %v, want ErrInvalidTransition", err)
	}
	if err := s.Fail(ctx, n.ID, "engine unavailable"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := s.Complete(ctx, n.ID, "", "late result"); !errors.Is(err, notes.ErrInvalidTransition) {
		t.Errorf("error→completed = %v, want ErrInvalidTransition", err)
	}

	got, _ := s.GetNote(ctx, "u1", n.ID)
	if got.Status != notes.StatusError || got.StatusError != "engine unavailable" {
		t.Errorf("terminal state corrupted: %s / %q", got.Status, got.StatusError)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	// WHAT: Out-of-order progress callbacks never move the bar backwards.
	s := newTestStore(t)
	ctx := context.Background()
	n := newPendingNote(t, s, "u1")
	if err := s.StartProcessing(ctx, n.ID); err != nil {
		t.Fatal(err)
	}

	for _, p := range []int{10, 60, 30} {
		if err := s.SetProgress(ctx, n.ID, p, "working"); err != nil {
			t.Fatalf("SetProgress(%d): %v", p, err)
		}
	}
	got, _ := s.GetNote(ctx, "u1", n.ID)
	if got.Progress != 60 {
		t.Errorf("progress = %d after stale update, want 60", got.Progress)
	}

	// 100 is reserved for completion.
	if err := s.SetProgress(ctx, n.ID, 100, "almost"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetNote(ctx, "u1", n.ID)
	if got.Progress != 99 {
		t.Errorf("progress = %d, want clamp to 99 before completion", got.Progress)
	}
}

func TestArtifactsOnlyWhenCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := newPendingNote(t, s, "u1")

	if _, err := s.PutArtifact(ctx, n.ID, notes.FormatPDF, "/tmp/a.pdf"); !errors.Is(err, notes.ErrNotCompleted) {
		t.Errorf("PutArtifact on pending = %v, want ErrNotCompleted", err)
	}

	s.StartProcessing(ctx, n.ID)
	s.Complete(ctx, n.ID, "", "done")

	loc, err := s.PutArtifact(ctx, n.ID, notes.FormatPDF, "/tmp/a.pdf")
	if err != nil || loc != "/tmp/a.pdf" {
		t.Fatalf("PutArtifact = %q, %v", loc, err)
	}
	// First write wins: a duplicate record keeps the original location.
	loc, err = s.PutArtifact(ctx, n.ID, notes.FormatPDF, "/tmp/other.pdf")
	if err != nil || loc != "/tmp/a.pdf" {
		t.Errorf("duplicate PutArtifact = %q, %v, want original location", loc, err)
	}
}

func TestOwnerScoping(t *testing.T) {
	// WHY: Note IDs are guessable enough that reads must be scoped to the
	// authenticated owner, not just the ID.
	s := newTestStore(t)
	ctx := context.Background()
	n := newPendingNote(t, s, "alice")

	if _, err := s.GetNote(ctx, "mallory", n.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("cross-user GetNote = %v, want ErrNotFound", err)
	}
	if err := s.DeleteNote(ctx, "mallory", n.ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("cross-user DeleteNote = %v, want ErrNotFound", err)
	}
	if err := s.DeleteNote(ctx, "alice", n.ID); err != nil {
		t.Errorf("owner DeleteNote = %v", err)
	}
}

func TestImagesRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := &notes.Note{
		ID:        idgen.Note(),
		UserID:    "u1",
		InputType: notes.InputMultiImage,
		Settings:  notes.Settings{Summarize: true},
	}
	imgs := []Image{
		{Name: "p1.png", MIME: "image/png", Data: []byte{1, 2}},
		{Name: "p2.png", MIME: "image/png", Data: []byte{3, 4}},
	}
	if err := s.CreateNote(ctx, n, imgs); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	got, err := s.Images(ctx, n.ID)
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(got) != 2 || got[0].Name != "p1.png" || got[1].Name != "p2.png" {
		t.Errorf("images out of order or missing: %+v", got)
	}
}

func TestFlashcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := newPendingNote(t, s, "u1")

	cards := []*notes.Flashcard{
		{ID: idgen.Flashcard(), NoteID: n.ID, Topic: "algebra", Term: "ring", Definition: "a set with two operations", Source: "manual"},
	}
	if err := s.AddFlashcards(ctx, "u1", cards); err != nil {
		t.Fatalf("AddFlashcards: %v", err)
	}
	if err := s.AddFlashcards(ctx, "mallory", cards); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("cross-user AddFlashcards = %v, want ErrNotFound", err)
	}

	got, err := s.ListFlashcards(ctx, "u1", n.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListFlashcards = %d cards, %v", len(got), err)
	}
	if err := s.DeleteFlashcard(ctx, "u1", got[0].ID); err != nil {
		t.Errorf("DeleteFlashcard: %v", err)
	}
	if err := s.DeleteFlashcard(ctx, "u1", got[0].ID); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}
