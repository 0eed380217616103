package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leadnotes/leadnotes/internal/apperr"
	"github.com/leadnotes/leadnotes/internal/auth"
	"github.com/leadnotes/leadnotes/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// effectiveOwner resolves the owner of the operation. An authenticated
// identity takes precedence over the explicit userId from the request.
func effectiveOwner(r *http.Request, explicit string) string {
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		return id.UserID
	}
	return explicit
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	owner := effectiveOwner(r, req.UserID)
	note, previewURL, err := h.svc.CreateNote(r.Context(), req.Text, owner, req.UserEmail)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("text and userId are required"))
		case errors.Is(err, apperr.ErrUnavailable):
			slog.Warn("create note hit unavailable store", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to create note"))
		default:
			slog.Error("create note failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to create note"))
		}
		return
	}

	resp := CreateNoteResponse{Note: *note, Message: "Note created successfully"}
	if previewURL != "" {
		resp.PreviewURL = &previewURL
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	owner := effectiveOwner(r, r.URL.Query().Get("userId"))
	notes, err := h.svc.ListNotes(r.Context(), owner)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("userId required"))
		case errors.Is(err, apperr.ErrUnavailable):
			slog.Warn("list notes hit unavailable store", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to fetch notes"))
		default:
			slog.Error("list notes failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to fetch notes"))
		}
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// DeleteNote handles DELETE /notes/{id}. The owner may come from a small
// JSON body or from the authenticated identity.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DeleteNoteRequest
	if body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	owner := effectiveOwner(r, req.UserID)
	if err := h.svc.DeleteNote(r.Context(), owner, id); err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody("userId required"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Note not found"))
		case errors.Is(err, apperr.ErrUnavailable):
			slog.Warn("delete note hit unavailable store", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to delete note"))
		default:
			slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to delete note"))
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}
