package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/embelhq/embel/enhance"
	"github.com/embelhq/embel/notes"
)

// Generator produces artifacts lazily: nothing is rendered at completion
// time, and once a format exists for a note it is never rendered again.
type Generator struct {
	svc      *notes.Service
	engine   enhance.TextEngine // nil disables AI LaTeX conversion
	compiler Compiler
	dir      string
	logger   *slog.Logger

	// inflight serializes generation per note+format so concurrent
	// requests share one render instead of racing the converter.
	inflight sync.Map // key string -> *sync.Mutex
}

func NewGenerator(svc *notes.Service, engine enhance.TextEngine, compiler Compiler, dir string, logger *slog.Logger) *Generator {
	return &Generator{svc: svc, engine: engine, compiler: compiler, dir: dir, logger: logger}
}

// Generate returns the artifact location for a note and format, rendering
// it first if this is the first request. The note must be completed.
func (g *Generator) Generate(ctx context.Context, userID, noteID string, format notes.Format) (string, error) {
	key := noteID + "/" + string(format)
	muAny, _ := g.inflight.LoadOrStore(key, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	// fast path: already generated
	if loc, err := g.svc.ArtifactLocation(ctx, userID, noteID, format); err != nil {
		return "", err
	} else if loc != "" {
		return loc, nil
	}

	n, err := g.svc.ExportSource(ctx, userID, noteID)
	if err != nil {
		return "", err
	}

	opts := DocumentOptions{
		Title:  n.Settings.TitleOverride,
		Author: n.Settings.AuthorNickname,
		Style:  n.Settings.Style,
		Font:   n.Settings.Font,
	}
	if opts.Title == "" {
		opts.Title = n.Settings.ProjectName
	}

	var data []byte
	switch format {
	case notes.FormatPDF:
		data, err = g.renderPDF(ctx, n, opts)
	case notes.FormatDOCX:
		data, err = WriteDOCX(n.EnhancedContent, opts)
	case notes.FormatTXT:
		data = WriteTXT(n.EnhancedContent, opts)
	default:
		return "", fmt.Errorf("%w: unknown format %q", notes.ErrInvalidInput, format)
	}
	if err != nil {
		return "", err
	}

	location, err := g.write(noteID, format, data)
	if err != nil {
		return "", err
	}

	// First write wins; if a competing process recorded another location,
	// serve that one and drop ours.
	recorded, err := g.svc.RecordArtifact(ctx, noteID, format, location)
	if err != nil {
		return "", err
	}
	if recorded != location {
		_ = os.Remove(location)
	}
	g.logger.Info("artifact generated", "note_id", noteID, "format", format)
	return recorded, nil
}

// renderPDF converts markdown to LaTeX (engine first, structural fallback
// second) and compiles it.
func (g *Generator) renderPDF(ctx context.Context, n *notes.Note, opts DocumentOptions) ([]byte, error) {
	var body string
	if g.engine != nil {
		converted, err := g.engine.ToLaTeX(ctx, n.EnhancedContent, opts.Style)
		if err != nil {
			g.logger.Warn("engine LaTeX conversion unavailable, using fallback",
				"note_id", n.ID, "error", err)
		} else {
			body = converted
		}
	}
	if body == "" {
		body = MarkdownToLaTeX(n.EnhancedContent)
	}

	doc := BuildDocument(body, opts)
	pdf, err := g.compiler.Compile(ctx, doc)
	if err == nil {
		return pdf, nil
	}
	// An AI conversion that fails to compile gets one more chance with the
	// deterministic fallback; a fallback that fails is final.
	if errors.Is(err, ErrBadMarkup) && g.engine != nil && body != MarkdownToLaTeX(n.EnhancedContent) {
		g.logger.Warn("AI LaTeX rejected by compiler, retrying with fallback", "note_id", n.ID)
		doc = BuildDocument(MarkdownToLaTeX(n.EnhancedContent), opts)
		return g.compiler.Compile(ctx, doc)
	}
	return nil, err
}

func (g *Generator) write(noteID string, format notes.Format, data []byte) (string, error) {
	dir := filepath.Join(g.dir, noteID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact dir: %w", err)
	}
	path := filepath.Join(dir, "note."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
