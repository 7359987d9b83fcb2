package notes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/embelhq/embel/auth"
	"github.com/embelhq/embel/kit"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger file parts spill to disk.
const maxMultipartMemory = 8 << 20

// RegisterHTTP mounts the note endpoints. Callers wrap the router in auth
// middleware; handlers assume an authenticated user in the context.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/notes", s.handleCreate)
	r.Get("/api/notes", s.handleList)
	r.Get("/api/notes/{noteID}", s.handleGet)
	r.Delete("/api/notes/{noteID}", s.handleDelete)
	r.Post("/api/topics/preview", s.handleTopicPreview)

	r.Post("/api/notes/{noteID}/flashcards", s.handleAddFlashcard)
	r.Get("/api/notes/{noteID}/flashcards", s.handleListFlashcards)
	r.Delete("/api/flashcards/{cardID}", s.handleDeleteFlashcard)
}

type createRequest struct {
	Text     string   `json:"text"`
	Settings Settings `json:"settings"`
}

// handleCreate accepts either a JSON body (text notes) or multipart form
// data (image notes: "files" parts plus a "settings" JSON field and an
// optional "text" field). It answers 202 with the pending note; processing
// is asynchronous.
func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var (
		text     string
		settings Settings
		files    []Upload
	)
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			kit.RespondError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		text = r.FormValue("text")
		if raw := r.FormValue("settings"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &settings); err != nil {
				kit.RespondError(w, http.StatusBadRequest, "invalid settings JSON")
				return
			}
		}
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				kit.RespondError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
			f.Close()
			if err != nil {
				kit.RespondError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			files = append(files, Upload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	} else {
		var req createRequest
		if err := kit.DecodeJSON(r, &req); err != nil {
			kit.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		text = req.Text
		settings = req.Settings
	}

	n, err := s.Submit(r.Context(), userID, text, files, settings)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusAccepted, n)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.List(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if list == nil {
		list = []*Note{}
	}
	kit.RespondJSON(w, http.StatusOK, list)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	n, err := s.Get(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "noteID"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusOK, n)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Delete(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "noteID")); err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type topicPreviewRequest struct {
	Text string `json:"text"`
}

func (s *Service) handleTopicPreview(w http.ResponseWriter, r *http.Request) {
	var req topicPreviewRequest
	if err := kit.DecodeJSON(r, &req); err != nil {
		kit.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	topics, err := s.TopicPreview(r.Context(), req.Text)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

type addFlashcardRequest struct {
	Topic      string `json:"topic"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

func (s *Service) handleAddFlashcard(w http.ResponseWriter, r *http.Request) {
	var req addFlashcardRequest
	if err := kit.DecodeJSON(r, &req); err != nil {
		kit.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := s.AddFlashcard(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "noteID"),
		req.Topic, req.Term, req.Definition)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusCreated, c)
}

func (s *Service) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ListFlashcards(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "noteID"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if cards == nil {
		cards = []*Flashcard{}
	}
	kit.RespondJSON(w, http.StatusOK, cards)
}

func (s *Service) handleDeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteFlashcard(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "cardID")); err != nil {
		s.respondErr(w, err)
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// respondErr maps domain errors onto the HTTP taxonomy: validation to 400,
// missing to 404, premature export to 409, the rest to 500.
func (s *Service) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		kit.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		kit.RespondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrNotCompleted):
		kit.RespondError(w, http.StatusConflict, "note is not completed")
	default:
		s.logger.Error("request failed", "error", err)
		kit.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
