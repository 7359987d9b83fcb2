package idgen

import (
	"strings"
	"testing"
)

func TestPrefixedGenerators(t *testing.T) {
	// WHAT: Domain generators carry their type prefix.
	// WHY: Prefixes make IDs self-describing in logs and API payloads.
	cases := []struct {
		gen    Generator
		prefix string
	}{
		{Note, "note_"},
		{Flashcard, "fc_"},
		{Artifact, "art_"},
		{Job, "job_"},
	}
	for _, c := range cases {
		id := c.gen()
		if !strings.HasPrefix(id, c.prefix) {
			t.Errorf("expected prefix %q, got %q", c.prefix, id)
		}
		if _, err := Parse(strings.TrimPrefix(id, c.prefix)); err != nil {
			t.Errorf("suffix of %q is not a UUID: %v", id, err)
		}
	}
}

func TestUUIDv7Ordering(t *testing.T) {
	// WHAT: Consecutive UUIDv7 IDs sort in generation order.
	// WHY: Note listings rely on lexicographic ID order matching creation order.
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		next := gen()
		if next <= prev {
			t.Fatalf("IDs not monotonic: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestUniqueness(t *testing.T) {
	// WHAT: No duplicates across a burst of generations.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}
