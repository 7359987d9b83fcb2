package notes

import "github.com/embelhq/embel/notes/internal/domain"

// Sentinel errors, re-exported from internal/domain. Validation failures
// wrap ErrInvalidInput so the API layer can map the whole family to 400
// without enumerating causes.
var (
	// ErrInvalidInput marks user-correctable validation failures caught
	// before dispatch.
	ErrInvalidInput = domain.ErrInvalidInput

	// ErrNotFound is returned when a note or flashcard does not exist or
	// belongs to another user.
	ErrNotFound = domain.ErrNotFound

	// ErrNotCompleted is the usage error for requesting an export artifact
	// from a note that is not completed with enhanced content.
	ErrNotCompleted = domain.ErrNotCompleted

	// ErrInvalidTransition is returned by the store when a status change
	// violates pending → processing → {completed, error}.
	ErrInvalidTransition = domain.ErrInvalidTransition

	// ErrNoImages guards the unreachable zero-image dispatch: the validator
	// rejects empty selections upstream, so hitting this is a programming
	// error, not a user one.
	ErrNoImages = domain.ErrNoImages
)
