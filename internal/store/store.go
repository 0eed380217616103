// Package store implements note persistence: a durable MongoDB store, an
// in-process fallback store, and a facade that routes each call to whichever
// of the two is currently reachable.
package store

import (
	"context"
	"time"

	"github.com/leadnotes/leadnotes/internal/models"
)

// Store is the persistence contract shared by both backends. Handlers only
// ever see this interface, so they stay agnostic of the active mode.
type Store interface {
	// Create persists the note and returns it with the store-assigned id.
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	// ListByOwner returns the owner's notes ordered newest-first by CreatedAt.
	ListByOwner(ctx context.Context, userID string) ([]models.Note, error)
	// DeleteByOwnerAndID removes the note matching both id and owner.
	// It reports false when nothing matched; a wrong owner and a missing id
	// are indistinguishable to the caller.
	DeleteByOwnerAndID(ctx context.Context, userID, id string) (bool, error)
	// MarkEmailSent flips the note's emailSent flag and records when.
	// EmailSent is monotonic: the flag only ever goes false to true.
	MarkEmailSent(ctx context.Context, id string, at time.Time) error
}
