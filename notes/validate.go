package notes

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Input limits enforced before any dispatch.
const (
	MaxFiles    = 5
	MaxFileSize = 10 << 20 // 10 MiB per file
)

// allowedExts maps accepted file extensions to their canonical media types.
var allowedExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

// Upload is one submitted file prior to validation.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ValidateText rejects empty or whitespace-only text input.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	return nil
}

// ValidateFiles checks a batch of uploads against count, size and type
// limits. All failures are user errors wrapping ErrInvalidInput; nothing is
// dispatched when any file in the batch is invalid.
func ValidateFiles(files []Upload) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files submitted", ErrInvalidInput)
	}
	if len(files) > MaxFiles {
		return fmt.Errorf("%w: %d files submitted, maximum is %d", ErrInvalidInput, len(files), MaxFiles)
	}
	for _, f := range files {
		if err := validateFile(f); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(f Upload) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: file %q is empty", ErrInvalidInput, f.Name)
	}
	if len(f.Data) > MaxFileSize {
		return fmt.Errorf("%w: file %q exceeds %d MiB", ErrInvalidInput, f.Name, MaxFileSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	canonical, ok := allowedExts[ext]
	if !ok {
		return fmt.Errorf("%w: file %q has unsupported type %q (allowed: png, jpg, jpeg, pdf)", ErrInvalidInput, f.Name, ext)
	}

	// The declared media type, when present, must agree with the extension.
	if ct := normalizeContentType(f.ContentType); ct != "" && ct != canonical {
		return fmt.Errorf("%w: file %q declares %q but has extension %q", ErrInvalidInput, f.Name, ct, ext)
	}

	// Content must actually be what the name claims. Catches renamed files
	// the extension check would let through.
	if sniffed := sniffMediaType(f.Data); sniffed != canonical {
		return fmt.Errorf("%w: file %q content does not match its %q extension", ErrInvalidInput, f.Name, ext)
	}
	return nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "application/octet-stream" {
		return "" // browsers fall back to this; rely on sniffing instead
	}
	return ct
}

// sniffMediaType identifies the payload by magic bytes. Only the three
// accepted formats are recognized; anything else returns "".
func sniffMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return "application/pdf"
	}
	return ""
}

// ValidateSettings checks the enhancement settings for a new note.
func ValidateSettings(s Settings) error {
	if !s.AddBulletPoints && !s.AddHeaders && !s.Expand && !s.Summarize {
		return fmt.Errorf("%w: at least one enhancement option must be enabled", ErrInvalidInput)
	}
	if s.Expand && s.Summarize {
		return fmt.Errorf("%w: expand and summarize are mutually exclusive", ErrInvalidInput)
	}
	switch s.Style {
	case "", "academic", "personal", "minimalist":
	default:
		return fmt.Errorf("%w: unknown style %q", ErrInvalidInput, s.Style)
	}
	seen := make(map[string]struct{}, len(s.FocusTopics))
	for _, topic := range s.FocusTopics {
		t := strings.ToLower(strings.TrimSpace(topic))
		if t == "" {
			return fmt.Errorf("%w: focus topics must not be blank", ErrInvalidInput)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: duplicate focus topic %q", ErrInvalidInput, topic)
		}
		seen[t] = struct{}{}
	}
	if fc := s.Flashcards; fc != nil {
		if fc.CardCount < 0 {
			return fmt.Errorf("%w: flashcard count must not be negative", ErrInvalidInput)
		}
	}
	return nil
}
