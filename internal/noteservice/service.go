// Package noteservice implements the note use cases on top of the
// persistence facade and the notification dispatcher.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leadnotes/leadnotes/internal/apperr"
	"github.com/leadnotes/leadnotes/internal/mail"
	"github.com/leadnotes/leadnotes/internal/models"
	"github.com/leadnotes/leadnotes/internal/store"
)

// Service coordinates the store and the mail dispatcher.
type Service struct {
	store  store.Store
	mailer mail.Dispatcher
	logger *slog.Logger
}

// NewService creates a note service.
func NewService(s store.Store, mailer mail.Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: s, mailer: mailer, logger: logger}
}

// CreateNote validates and persists a note, then dispatches the notification
// when a recipient email is present. The write and the dispatch are two
// sequential operations: a dispatch failure is logged and recorded as
// emailSent=false, and can never roll back the already-persisted note.
// Returns the stored note and a preview URL when the transport produced one.
func (s *Service) CreateNote(ctx context.Context, text, userID, userEmail string) (*models.Note, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("text is required: %w", apperr.ErrValidation)
	}
	if userID == "" {
		return nil, "", fmt.Errorf("userId is required: %w", apperr.ErrValidation)
	}

	note, err := s.store.Create(ctx, &models.Note{
		Text:      text,
		UserID:    userID,
		UserEmail: userEmail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("create note: %w", err)
	}

	previewURL := ""
	if userEmail != "" {
		res := s.mailer.NotifyCreated(ctx, userEmail, note.Text, note.ID, note.CreatedAt)
		if res.Success {
			sentAt := time.Now().UTC()
			if err := s.store.MarkEmailSent(ctx, note.ID, sentAt); err != nil {
				// The mail went out; only the flag update failed.
				s.logger.Warn("failed to record email dispatch",
					slog.String("note_id", note.ID),
					slog.String("error", err.Error()))
			} else {
				note.EmailSent = true
				note.EmailSentAt = &sentAt
			}
			previewURL = res.PreviewURL
		}
	}
	return note, previewURL, nil
}

// ListNotes returns the owner's notes newest-first.
func (s *Service) ListNotes(ctx context.Context, userID string) ([]models.Note, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required: %w", apperr.ErrValidation)
	}
	notes, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// DeleteNote removes the owner's note. A wrong owner and a missing id both
// come back as apperr.ErrNotFound.
func (s *Service) DeleteNote(ctx context.Context, userID, id string) error {
	if userID == "" {
		return fmt.Errorf("userId is required: %w", apperr.ErrValidation)
	}
	deleted, err := s.store.DeleteByOwnerAndID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if !deleted {
		return apperr.ErrNotFound
	}
	return nil
}
