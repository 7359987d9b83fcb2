package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/embelhq/embel/dbopen"
	"github.com/embelhq/embel/notes"
	"github.com/embelhq/embel/pipeline"
)

// newCompletedNote wires a service with a processed note ready for export.
func newCompletedNote(t *testing.T, settings notes.Settings) (*notes.Service, *notes.Note) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(notes.Schema), dbopen.WithSchema(pipeline.Schema))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := notes.NewService(db, nil, logger)

	ctx := context.Background()
	n, err := svc.CreateFromText(ctx, "u1", "mitosis has phases", settings)
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}
	if err := svc.MarkProcessing(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	enhanced := "# Mitosis\n\nCells divide in stages.\n\n- prophase\n- anaphase"
	if err := svc.CompleteProcessing(ctx, n.ID, n.Text, enhanced); err != nil {
		t.Fatal(err)
	}
	return svc, n
}

func newGenerator(t *testing.T, svc *notes.Service, c Compiler) *Generator {
	t.Helper()
	return NewGenerator(svc, nil, c, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerateIsIdempotentPerFormat(t *testing.T) {
	// WHAT: Repeated PDF requests invoke the compiler exactly once and
	// return the same location.
	svc, n := newCompletedNote(t, notes.Settings{AddHeaders: true})
	comp := &fakeCompiler{name: "fake", pdf: []byte("%PDF-fake")}
	g := newGenerator(t, svc, comp)
	ctx := context.Background()

	loc1, err := g.Generate(ctx, "u1", n.ID, notes.FormatPDF)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	loc2, err := g.Generate(ctx, "u1", n.ID, notes.FormatPDF)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if loc1 != loc2 {
		t.Errorf("locations differ: %q vs %q", loc1, loc2)
	}
	if comp.calls != 1 {
		t.Errorf("compiler invoked %d times, want 1", comp.calls)
	}
	if data, err := os.ReadFile(loc1); err != nil || string(data) != "%PDF-fake" {
		t.Errorf("artifact content = %q, %v", data, err)
	}
}

func TestGenerateConcurrentRequestsShareOneRender(t *testing.T) {
	svc, n := newCompletedNote(t, notes.Settings{AddHeaders: true})
	comp := &fakeCompiler{name: "fake", pdf: []byte("%PDF-fake")}
	g := newGenerator(t, svc, comp)

	var wg sync.WaitGroup
	locs := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc, err := g.Generate(context.Background(), "u1", n.ID, notes.FormatPDF)
			if err != nil {
				t.Errorf("Generate: %v", err)
				return
			}
			locs[i] = loc
		}(i)
	}
	wg.Wait()

	if comp.calls != 1 {
		t.Errorf("compiler invoked %d times under contention, want 1", comp.calls)
	}
	for _, loc := range locs {
		if loc != locs[0] {
			t.Errorf("diverging locations: %v", locs)
		}
	}
}

func TestGenerateRefusesUnfinishedNotes(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(notes.Schema))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := notes.NewService(db, nil, logger)
	n, err := svc.CreateFromText(context.Background(), "u1", "text", notes.Settings{Expand: true})
	if err != nil {
		t.Fatal(err)
	}
	g := newGenerator(t, svc, &fakeCompiler{name: "fake"})

	_, err = g.Generate(context.Background(), "u1", n.ID, notes.FormatPDF)
	if !errors.Is(err, notes.ErrNotCompleted) {
		t.Errorf("pending export = %v, want ErrNotCompleted", err)
	}
}

func TestGenerateTXTAndDOCX(t *testing.T) {
	svc, n := newCompletedNote(t, notes.Settings{
		AddHeaders: true, TitleOverride: "Bio Notes", AuthorNickname: "sam",
	})
	g := newGenerator(t, svc, &fakeCompiler{name: "fake"})
	ctx := context.Background()

	txtLoc, err := g.Generate(ctx, "u1", n.ID, notes.FormatTXT)
	if err != nil {
		t.Fatalf("txt: %v", err)
	}
	txt, _ := os.ReadFile(txtLoc)
	if !bytes.Contains(txt, []byte("Bio Notes")) || !bytes.Contains(txt, []byte("- prophase")) {
		t.Errorf("txt content = %q", txt)
	}

	docxLoc, err := g.Generate(ctx, "u1", n.ID, notes.FormatDOCX)
	if err != nil {
		t.Fatalf("docx: %v", err)
	}
	data, _ := os.ReadFile(docxLoc)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("docx is not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	for _, want := range []string{"[Content_Types].xml", "word/document.xml"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("docx missing %s (has %v)", want, names)
		}
	}
}

func TestGenerateScopedToOwner(t *testing.T) {
	svc, n := newCompletedNote(t, notes.Settings{AddHeaders: true})
	g := newGenerator(t, svc, &fakeCompiler{name: "fake", pdf: []byte("%PDF")})

	_, err := g.Generate(context.Background(), "mallory", n.ID, notes.FormatPDF)
	if !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("cross-user export = %v, want ErrNotFound", err)
	}
}
