// Package api implements the LeadNotes REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/leadnotes/leadnotes/internal/auth"
	"github.com/leadnotes/leadnotes/internal/noteservice"
)

// NewRouter creates a chi router with the note routes mounted behind the
// auth gate. authMode and verifier follow internal/auth semantics; verifier
// may be nil unless the mode is enforced. The health endpoint sits outside
// the gate.
func NewRouter(svc *noteservice.Service, authMode string, verifier auth.Verifier) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Permissive CORS so browser frontends on other origins can call the API.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Backend is running"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authMode, verifier))

		r.Post("/notes", h.CreateNote)
		r.Get("/notes", h.ListNotes)
		r.Delete("/notes/{id}", h.DeleteNote)
	})

	return r
}
