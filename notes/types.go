// Package notes implements the note-enhancement domain: submission
// validation and routing, the note record with its processing state machine,
// flashcards, and the HTTP/MCP surfaces over them.
//
// The domain types and sentinel errors are declared in internal/domain so
// the internal store can reference them without an import cycle; they are
// re-exported here as aliases with identical shapes and identities.
package notes

import "github.com/embelhq/embel/notes/internal/domain"

// Status is the processing state of a note. Transitions are restricted to
// pending → processing → {completed, error}; completed and error are
// terminal, no re-entry.
type Status = domain.Status

const (
	StatusPending    = domain.StatusPending
	StatusProcessing = domain.StatusProcessing
	StatusCompleted  = domain.StatusCompleted
	StatusError      = domain.StatusError
)

// InputType identifies which creation path produced a note.
type InputType = domain.InputType

const (
	InputText        = domain.InputText
	InputSingleImage = domain.InputSingleImage
	InputMultiImage  = domain.InputMultiImage
)

// Format identifies an export artifact format.
type Format = domain.Format

const (
	FormatPDF  = domain.FormatPDF
	FormatDOCX = domain.FormatDOCX
	FormatTXT  = domain.FormatTXT
)

// Formats lists every supported artifact format.
var Formats = domain.Formats

// ParseFormat validates a format string from the API.
func ParseFormat(s string) (Format, bool) { return domain.ParseFormat(s) }

// Settings are the user-chosen transformations applied during processing.
// At least one enhancement toggle must be set.
type Settings = domain.Settings

// FlashcardDirectives asks for AI flashcard generation during processing.
type FlashcardDirectives = domain.FlashcardDirectives

// MaxFlashcards caps a single generation request.
const MaxFlashcards = domain.MaxFlashcards

// Note is the persistent record of one submission and its processing and
// export state. Artifact locations are set only when status is completed;
// progress is non-decreasing while processing.
type Note = domain.Note

// Flashcard is owned by a note but its lifecycle is independent of
// processing status: cards survive and can be edited regardless of how the
// note's pipeline ended.
type Flashcard = domain.Flashcard
