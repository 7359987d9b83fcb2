package notes

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func pngBytes(n int) []byte {
	b := append([]byte{}, "\x89PNG\r\n\x1a\n"...)
	return append(b, bytes.Repeat([]byte{0}, n)...)
}

func TestValidateTextRejectsWhitespace(t *testing.T) {
	// WHAT: Whitespace-only text is rejected before any dispatch.
	// WHY: Enhancing nothing wastes an engine call and produces a junk note.
	for _, text := range []string{"", "   ", "\n\t "} {
		if err := ValidateText(text); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ValidateText(%q) = %v, want ErrInvalidInput", text, err)
		}
	}
	if err := ValidateText("  real content  "); err != nil {
		t.Errorf("ValidateText with content = %v", err)
	}
}

func TestValidateFilesCountAndSize(t *testing.T) {
	many := make([]Upload, MaxFiles+1)
	for i := range many {
		many[i] = Upload{Name: "a.png", Data: pngBytes(16)}
	}
	if err := ValidateFiles(many); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("over-count batch = %v, want ErrInvalidInput", err)
	}

	big := Upload{Name: "big.png", Data: pngBytes(MaxFileSize + 1)}
	if err := ValidateFiles([]Upload{big}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("oversized file = %v, want ErrInvalidInput", err)
	}

	if err := ValidateFiles(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty batch = %v, want ErrInvalidInput", err)
	}
}

func TestValidateFilesRejectsRenamedContent(t *testing.T) {
	// WHAT: A text file renamed to .png is rejected even though the
	// extension is allowed.
	// WHY: Downstream engines receive the bytes, not the name; a mismatch
	// fails late and confusingly without this check.
	fake := Upload{Name: "notes.png", Data: []byte("just some text pretending")}
	err := ValidateFiles([]Upload{fake})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("renamed file = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "content does not match") {
		t.Errorf("error should name the mismatch, got %q", err)
	}
}

func TestValidateFilesRejectsBatchOnSingleBadFile(t *testing.T) {
	// WHAT: One invalid file poisons the whole batch.
	// WHY: Partial dispatch would enhance a subset the user never intended.
	batch := []Upload{
		{Name: "ok.png", Data: pngBytes(16)},
		{Name: "bad.gif", ContentType: "image/gif", Data: []byte("GIF89a")},
	}
	if err := ValidateFiles(batch); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("mixed batch = %v, want ErrInvalidInput", err)
	}
}

func TestValidateFilesAcceptsAllSupportedTypes(t *testing.T) {
	batch := []Upload{
		{Name: "a.png", ContentType: "image/png", Data: pngBytes(4)},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte("\xff\xd8\xff\xe0rest")},
		{Name: "c.jpeg", Data: []byte("\xff\xd8\xff\xe1rest")},
		{Name: "d.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7\n")},
	}
	if err := ValidateFiles(batch); err != nil {
		t.Errorf("supported batch = %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	if err := ValidateSettings(Settings{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("no toggles = %v, want ErrInvalidInput", err)
	}
	if err := ValidateSettings(Settings{Expand: true, Summarize: true}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expand+summarize = %v, want ErrInvalidInput", err)
	}
	if err := ValidateSettings(Settings{AddHeaders: true, Style: "brutalist"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown style = %v, want ErrInvalidInput", err)
	}
	if err := ValidateSettings(Settings{Summarize: true, FocusTopics: []string{"Math", " math "}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate topics = %v, want ErrInvalidInput", err)
	}
	ok := Settings{AddBulletPoints: true, Style: "academic", FocusTopics: []string{"algebra", "geometry"}}
	if err := ValidateSettings(ok); err != nil {
		t.Errorf("valid settings = %v", err)
	}
}

func TestClampCardCount(t *testing.T) {
	// WHAT: Requested card counts clamp into [max(1, topics), 50].
	cases := []struct {
		topics []string
		req    int
		want   int
	}{
		{nil, 0, 1},
		{nil, 10, 10},
		{nil, 500, MaxFlashcards},
		{[]string{"a", "b", "c"}, 1, 3},
		{[]string{"a", "b", "c"}, 7, 7},
	}
	for _, c := range cases {
		d := FlashcardDirectives{Topics: c.topics, CardCount: c.req}
		if got := d.ClampCardCount(); got != c.want {
			t.Errorf("ClampCardCount(topics=%d, req=%d) = %d, want %d", len(c.topics), c.req, got, c.want)
		}
	}
}
