package export

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/embelhq/embel/auth"
	"github.com/embelhq/embel/kit"
	"github.com/embelhq/embel/notes"
)

var contentTypes = map[notes.Format]string{
	notes.FormatPDF:  "application/pdf",
	notes.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	notes.FormatTXT:  "text/plain; charset=utf-8",
}

// RegisterHTTP mounts the artifact download endpoint. The first request
// for a format renders it; later requests serve the cached file.
func (g *Generator) RegisterHTTP(r chi.Router) {
	r.Get("/api/notes/{noteID}/export/{format}", g.handleExport)
}

func (g *Generator) handleExport(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	format, ok := notes.ParseFormat(chi.URLParam(r, "format"))
	if !ok {
		kit.RespondError(w, http.StatusBadRequest, "unknown format")
		return
	}

	location, err := g.Generate(r.Context(), auth.UserID(r.Context()), noteID, format)
	switch {
	case err == nil:
	case errors.Is(err, notes.ErrNotFound):
		kit.RespondError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, notes.ErrNotCompleted):
		kit.RespondError(w, http.StatusConflict, "note is not completed")
		return
	case errors.Is(err, ErrBadMarkup):
		kit.RespondError(w, http.StatusUnprocessableEntity, "document failed to compile")
		return
	case errors.Is(err, ErrNoCompiler):
		kit.RespondError(w, http.StatusBadGateway, "no compiler available")
		return
	default:
		g.logger.Error("export failed", "note_id", noteID, "format", format, "error", err)
		kit.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s.%s"`, noteID, format))
	http.ServeFile(w, r, location)
}
