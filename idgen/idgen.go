// Package idgen provides pluggable ID generation for the embel services.
//
// Every store accepts a Generator, making the ID strategy a startup-time
// decision rather than a compile-time one.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique, so note listings sort by creation
// order without a secondary index.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Used for type-scoped identifiers ("note_", "fc_", "art_", "job_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the service-wide default: UUIDv7.
var Default Generator = UUIDv7()

// Note generates a note ID ("note_" + UUIDv7).
var Note Generator = Prefixed("note_", Default)

// Flashcard generates a flashcard ID ("fc_" + UUIDv7).
var Flashcard Generator = Prefixed("fc_", Default)

// Artifact generates an artifact ID ("art_" + UUIDv7).
var Artifact Generator = Prefixed("art_", Default)

// Job generates a pipeline job ID ("job_" + UUIDv7).
var Job Generator = Prefixed("job_", Default)

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns it canonicalized, or an error.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}
