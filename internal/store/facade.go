package store

import (
	"context"
	"fmt"
	"time"

	"github.com/leadnotes/leadnotes/internal/apperr"
	"github.com/leadnotes/leadnotes/internal/models"
)

// Mode identifies which backend a facade call was routed to.
type Mode string

const (
	// ModeDurable means the call went to MongoDB.
	ModeDurable Mode = "durable"
	// ModeFallback means the call went to the in-process store.
	ModeFallback Mode = "fallback"
)

// Probe reports whether the durable connection is currently established.
type Probe func() bool

// Facade routes every call to the durable store when the probe says the
// connection is up, and to the fallback store otherwise. The probe is
// re-evaluated per call, so a process can move between modes as connectivity
// drops and recovers. The two stores stay disjoint: records written in one
// mode are invisible while the other mode is active, and nothing migrates.
//
// A durable-mode failure is surfaced to the caller rather than retried
// against the fallback store, so a single request can never write to both.
type Facade struct {
	durable  Store
	fallback Store
	probe    Probe
}

// NewFacade builds a facade over the two stores. durable may be nil when no
// connection string is configured; the facade then runs fallback-only for
// the process lifetime regardless of the probe.
func NewFacade(durable, fallback Store, probe Probe) *Facade {
	return &Facade{durable: durable, fallback: fallback, probe: probe}
}

// CurrentMode reports which backend the next call would use.
func (f *Facade) CurrentMode() Mode {
	if f.durable != nil && f.probe() {
		return ModeDurable
	}
	return ModeFallback
}

// route picks the store for this call and reports whether it is the durable
// one.
func (f *Facade) route() (Store, bool) {
	if f.durable != nil && f.probe() {
		return f.durable, true
	}
	return f.fallback, false
}

// wrapDurable marks a durable-store fault as apperr.ErrUnavailable so callers
// can recognize it without knowing the driver.
func wrapDurable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("durable store: %w: %w", apperr.ErrUnavailable, err)
}

// Create persists the note in the currently active store.
func (f *Facade) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	st, durable := f.route()
	created, err := st.Create(ctx, note)
	if durable {
		err = wrapDurable(err)
	}
	return created, err
}

// ListByOwner lists the owner's notes from the currently active store.
func (f *Facade) ListByOwner(ctx context.Context, userID string) ([]models.Note, error) {
	st, durable := f.route()
	notes, err := st.ListByOwner(ctx, userID)
	if durable {
		err = wrapDurable(err)
	}
	return notes, err
}

// DeleteByOwnerAndID deletes from the currently active store.
func (f *Facade) DeleteByOwnerAndID(ctx context.Context, userID, id string) (bool, error) {
	st, durable := f.route()
	deleted, err := st.DeleteByOwnerAndID(ctx, userID, id)
	if durable {
		err = wrapDurable(err)
	}
	return deleted, err
}

// MarkEmailSent patches the note in the currently active store.
func (f *Facade) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	st, durable := f.route()
	err := st.MarkEmailSent(ctx, id, at)
	if durable {
		err = wrapDurable(err)
	}
	return err
}
