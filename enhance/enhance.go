// Package enhance defines the AI engine contracts used by the processing
// pipeline: text enhancement, OCR extraction and correction, topic
// suggestion, flashcard generation, and markdown-to-LaTeX conversion.
// Concrete engines live in the openai and gemini subpackages.
package enhance

import (
	"context"
	"errors"
	"strings"
)

// Image is one input picture or scanned page for extraction.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// Card is one generated flashcard.
type Card struct {
	Topic      string `json:"topic"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Directives describe the requested transformation. They mirror the
// user-facing settings but keep this package free of the domain types.
type Directives struct {
	AddBulletPoints    bool
	AddHeaders         bool
	Expand             bool
	Summarize          bool
	FocusTopics        []string
	CustomInstructions string
	Style              string
}

// TextEngine transforms already-extracted text.
type TextEngine interface {
	// Enhance rewrites raw notes as polished markdown per the directives.
	Enhance(ctx context.Context, text string, d Directives) (string, error)

	// CorrectOCR fixes recognition artifacts in extracted text without
	// changing its meaning. Runs between extraction and enhancement.
	CorrectOCR(ctx context.Context, text string) (string, error)

	// SuggestTopics returns up to max candidate focus topics for the text.
	SuggestTopics(ctx context.Context, text string, max int) ([]string, error)

	// GenerateFlashcards produces count cards covering the given topics
	// (or the whole text when topics is empty).
	GenerateFlashcards(ctx context.Context, text string, topics []string, count int) ([]Card, error)

	// ToLaTeX converts enhanced markdown into a complete LaTeX document
	// body for the given style. Export falls back to a local conversion
	// when this fails.
	ToLaTeX(ctx context.Context, markdown, style string) (string, error)
}

// VisionEngine extracts text from images. A batch of two or more images is
// one joint request so the engine can reason across page boundaries.
type VisionEngine interface {
	Extract(ctx context.Context, images []Image) (string, error)
}

// Engine is what the pipeline actually holds.
type Engine interface {
	TextEngine
	VisionEngine
}

var (
	// ErrUnavailable marks transport failures and upstream 5xx: the engine
	// could not be reached or did not answer. Retryable.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrBadOutput marks a reply that arrived but could not be used
	// (empty, or unparseable where structure was required). Not retryable
	// with the same input.
	ErrBadOutput = errors.New("engine returned unusable output")
)

// StripFences removes a surrounding markdown code fence, which models add
// around JSON and LaTeX despite instructions not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop a language tag on the opening fence
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]\\") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
