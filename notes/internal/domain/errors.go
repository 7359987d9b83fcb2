package domain

import "errors"

// Sentinel errors. Validation failures wrap ErrInvalidInput so the API layer
// can map the whole family to 400 without enumerating causes.
var (
	// ErrInvalidInput marks user-correctable validation failures caught
	// before dispatch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a note or flashcard does not exist or
	// belongs to another user.
	ErrNotFound = errors.New("not found")

	// ErrNotCompleted is the usage error for requesting an export artifact
	// from a note that is not completed with enhanced content.
	ErrNotCompleted = errors.New("note is not completed")

	// ErrInvalidTransition is returned by the store when a status change
	// violates pending → processing → {completed, error}.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoImages guards the unreachable zero-image dispatch: the validator
	// rejects empty selections upstream, so hitting this is a programming
	// error, not a user one.
	ErrNoImages = errors.New("no images to submit")
)
