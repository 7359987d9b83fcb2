package drive

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/embelhq/embel/auth"
	"github.com/embelhq/embel/kit"
	"github.com/embelhq/embel/notes"
)

// RegisterHTTP mounts the drive endpoints. The callback route is exempt
// from auth upstream; the provider redirects the browser there without our
// bearer token, so identity rides on the state token instead.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/api/drive/status", s.handleStatus)
	r.Get("/api/drive/connect", s.handleConnect)
	r.Post("/api/drive/upload", s.handleUpload)
	r.Delete("/api/drive", s.handleDisconnect)
}

// RegisterCallback mounts the unauthenticated OAuth callback.
func (s *Service) RegisterCallback(r chi.Router) {
	r.Get("/api/drive/callback", s.handleCallback)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		kit.RespondError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	kit.RespondJSON(w, http.StatusOK, st)
}

func (s *Service) handleConnect(w http.ResponseWriter, r *http.Request) {
	url, err := s.AuthURL(auth.UserID(r.Context()))
	if err != nil {
		kit.RespondError(w, http.StatusInternalServerError, "could not start authorization")
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		kit.RespondError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	if err := s.HandleCallback(r.Context(), state, code); err != nil {
		kit.RespondError(w, http.StatusBadRequest, "authorization failed")
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

type uploadRequest struct {
	NoteID string `json:"note_id"`
	Format string `json:"format"`
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := kit.DecodeJSON(r, &req); err != nil {
		kit.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	format, ok := notes.ParseFormat(req.Format)
	if !ok {
		kit.RespondError(w, http.StatusBadRequest, "unknown format")
		return
	}

	remotePath, err := s.Upload(r.Context(), auth.UserID(r.Context()), req.NoteID, format)
	switch {
	case err == nil:
		kit.RespondJSON(w, http.StatusOK, map[string]string{"path": remotePath})
	case errors.Is(err, ErrNotConnected):
		kit.RespondError(w, http.StatusConflict, "drive not connected")
	case errors.Is(err, notes.ErrNotFound):
		kit.RespondError(w, http.StatusNotFound, "note not found")
	case errors.Is(err, notes.ErrNotCompleted):
		kit.RespondError(w, http.StatusConflict, "note is not completed")
	default:
		s.logger.Error("upload failed", "note_id", req.NoteID, "error", err)
		kit.RespondError(w, http.StatusBadGateway, "upload failed")
	}
}

func (s *Service) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.Disconnect(r.Context(), auth.UserID(r.Context())); err != nil {
		kit.RespondError(w, http.StatusInternalServerError, "disconnect failed")
		return
	}
	kit.RespondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
