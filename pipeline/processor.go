package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embelhq/embel/enhance"
	"github.com/embelhq/embel/notes"
)

// Progress milestones reported while a note moves through the stages. The
// store keeps them monotonic, so a stage may be skipped but never rolled
// back.
const (
	progressPreparing  = 5
	progressExtracting = 15
	progressCorrecting = 45
	progressEnhancing  = 60
	progressFlashcards = 85
)

// Processor walks one note through the pipeline. Transient engine failures
// propagate as job errors so the queue retries them; everything else ends
// the note in the error state immediately.
type Processor struct {
	svc    *notes.Service
	engine enhance.Engine
	logger *slog.Logger
}

func NewProcessor(svc *notes.Service, engine enhance.Engine, logger *slog.Logger) *Processor {
	return &Processor{svc: svc, engine: engine, logger: logger}
}

// Process is the JobEnhance handler.
func (p *Processor) Process(ctx context.Context, job *Job) error {
	n, images, err := p.svc.LoadForProcessing(ctx, job.NoteID)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			// Note deleted between enqueue and claim; nothing to do.
			p.logger.Info("note gone before processing", "note_id", job.NoteID)
			return nil
		}
		return fmt.Errorf("load note: %w", err)
	}
	if n.Status.Terminal() {
		p.logger.Info("note already terminal", "note_id", n.ID, "status", n.Status)
		return nil
	}
	if err := p.svc.MarkProcessing(ctx, n.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	p.progress(ctx, n.ID, progressPreparing, "preparing")

	text := n.Text
	if n.InputType != notes.InputText {
		text, err = p.extract(ctx, n, images)
		if err != nil {
			return p.fault(ctx, n.ID, "extraction", err)
		}
	}

	p.progress(ctx, n.ID, progressEnhancing, "enhancing notes")
	enhanced, err := p.engine.Enhance(ctx, text, directives(n.Settings))
	if err != nil {
		return p.fault(ctx, n.ID, "enhancement", err)
	}
	if strings.TrimSpace(enhanced) == "" {
		return p.fault(ctx, n.ID, "enhancement", enhance.ErrBadOutput)
	}

	// Flashcards are supplementary: a failure here downgrades to a log
	// line, never an errored note.
	if fc := n.Settings.Flashcards; fc != nil {
		p.progress(ctx, n.ID, progressFlashcards, "generating flashcards")
		cards, err := p.engine.GenerateFlashcards(ctx, enhanced, fc.Topics, fc.ClampCardCount())
		if err != nil {
			p.logger.Error("flashcard generation failed", "note_id", n.ID, "error", err)
		} else if err := p.svc.SaveGeneratedFlashcards(ctx, n.ID, cards); err != nil {
			p.logger.Error("flashcard save failed", "note_id", n.ID, "error", err)
		}
	}

	if err := p.svc.CompleteProcessing(ctx, n.ID, text, enhanced); err != nil {
		return fmt.Errorf("complete note: %w", err)
	}
	p.logger.Info("note processed", "note_id", n.ID, "input_type", n.InputType)
	return nil
}

// extract runs vision extraction and the OCR correction pass. The whole
// image batch goes to the engine as one request. A correction failure falls
// back to the raw extraction.
func (p *Processor) extract(ctx context.Context, n *notes.Note, images []enhance.Image) (string, error) {
	if len(images) == 0 {
		return "", notes.ErrNoImages
	}
	p.progress(ctx, n.ID, progressExtracting, "extracting text from images")
	raw, err := p.engine.Extract(ctx, images)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: extraction produced no text", enhance.ErrBadOutput)
	}

	p.progress(ctx, n.ID, progressCorrecting, "correcting recognition errors")
	corrected, err := p.engine.CorrectOCR(ctx, raw)
	if err != nil || strings.TrimSpace(corrected) == "" {
		p.logger.Warn("ocr correction skipped", "note_id", n.ID, "error", err)
		return raw, nil
	}
	return corrected, nil
}

// fault decides between retry and terminal failure. ErrUnavailable bubbles
// up so the queue retries with the note still processing; anything else
// ends the note now.
func (p *Processor) fault(ctx context.Context, noteID, stage string, err error) error {
	if errors.Is(err, enhance.ErrUnavailable) {
		return fmt.Errorf("%s: %w", stage, err)
	}
	msg := fmt.Sprintf("%s failed: %v", stage, err)
	if ferr := p.svc.FailProcessing(ctx, noteID, msg); ferr != nil {
		p.logger.Error("fail transition failed", "note_id", noteID, "error", ferr)
	}
	return nil
}

// FailExhausted is the worker's last-attempt callback: the job went poison,
// so the note must reach its terminal error state.
func (p *Processor) FailExhausted(ctx context.Context, job *Job, errMsg string) {
	if err := p.svc.FailProcessing(ctx, job.NoteID, errMsg); err != nil {
		p.logger.Error("exhausted fail transition failed", "note_id", job.NoteID, "error", err)
	}
}

func (p *Processor) progress(ctx context.Context, noteID string, pct int, msg string) {
	if err := p.svc.ReportProgress(ctx, noteID, pct, msg); err != nil {
		p.logger.Error("progress update failed", "note_id", noteID, "error", err)
	}
}

func directives(s notes.Settings) enhance.Directives {
	return enhance.Directives{
		AddBulletPoints:    s.AddBulletPoints,
		AddHeaders:         s.AddHeaders,
		Expand:             s.Expand,
		Summarize:          s.Summarize,
		FocusTopics:        s.FocusTopics,
		CustomInstructions: s.CustomInstructions,
		Style:              s.Style,
	}
}
