// Package domain holds the note-enhancement domain types and sentinel
// errors shared by the notes package and its internal store. The notes
// package re-exports everything here under its own name; this package
// exists only to keep the store importable from notes without a cycle.
package domain

import "time"

// Status is the processing state of a note. Transitions are restricted to
// pending → processing → {completed, error}; completed and error are
// terminal, no re-entry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InputType identifies which creation path produced a note.
type InputType string

const (
	InputText        InputType = "text"
	InputSingleImage InputType = "single-image"
	InputMultiImage  InputType = "multi-image"
)

// Format identifies an export artifact format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// Formats lists every supported artifact format.
var Formats = []Format{FormatPDF, FormatDOCX, FormatTXT}

// ParseFormat validates a format string from the API.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatPDF, FormatDOCX, FormatTXT:
		return Format(s), true
	}
	return "", false
}

// Settings are the user-chosen transformations applied during processing.
// At least one enhancement toggle must be set.
type Settings struct {
	AddBulletPoints bool `json:"add_bullet_points"`
	AddHeaders      bool `json:"add_headers"`
	Expand          bool `json:"expand"`
	Summarize       bool `json:"summarize"`

	// FocusTopics steer the enhancement toward specific subjects.
	// Ordered, unique, optional.
	FocusTopics []string `json:"focus_topics,omitempty"`

	// Flashcards, when present, asks the pipeline to generate cards.
	Flashcards *FlashcardDirectives `json:"flashcards,omitempty"`

	// Style is the document style preference: academic, personal, minimalist.
	Style string `json:"style,omitempty"`
	// Font is a friendly font-family preference (mapped at export time).
	Font string `json:"font,omitempty"`

	// CustomInstructions is free text appended to the enhancement prompt.
	CustomInstructions string `json:"custom_instructions,omitempty"`

	// Presentation metadata flows into the exported documents.
	ProjectName    string `json:"project_name,omitempty"`
	TitleOverride  string `json:"title_override,omitempty"`
	AuthorNickname string `json:"author_nickname,omitempty"`
}

// FlashcardDirectives asks for AI flashcard generation during processing.
type FlashcardDirectives struct {
	Topics    []string `json:"topics,omitempty"`
	CardCount int      `json:"card_count"`
}

// MaxFlashcards caps a single generation request.
const MaxFlashcards = 50

// ClampCardCount normalizes the requested card count into
// [max(1, len(topics)), MaxFlashcards].
func (d *FlashcardDirectives) ClampCardCount() int {
	floor := 1
	if len(d.Topics) > floor {
		floor = len(d.Topics)
	}
	n := d.CardCount
	if n < floor {
		n = floor
	}
	if n > MaxFlashcards {
		n = MaxFlashcards
	}
	return n
}

// Note is the persistent record of one submission and its processing and
// export state. Artifact locations are set only when status is completed;
// progress is non-decreasing while processing.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	InputType InputType `json:"input_type"`

	// Text is the original input; empty for image notes until extraction
	// fills it in.
	Text     string   `json:"text,omitempty"`
	Settings Settings `json:"settings"`

	EnhancedContent string `json:"enhanced_content,omitempty"`

	Status          Status `json:"status"`
	Progress        int    `json:"progress"`
	ProgressMessage string `json:"progress_message,omitempty"`
	// StatusError carries the upstream failure message when status=error.
	StatusError string `json:"error,omitempty"`

	// Artifact locations, one per format, set lazily by the export
	// generator and never regenerated once recorded.
	Artifacts map[Format]string `json:"artifacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flashcard is owned by a note but its lifecycle is independent of
// processing status: cards survive and can be edited regardless of how the
// note's pipeline ended.
type Flashcard struct {
	ID         string    `json:"id"`
	NoteID     string    `json:"note_id"`
	Topic      string    `json:"topic"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	Source     string    `json:"source"` // "ai" or "manual"
	CreatedAt  time.Time `json:"created_at"`
}
