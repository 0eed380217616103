package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/leadnotes/leadnotes/internal/models"
)

// Memory is the in-process fallback store, active while MongoDB is
// unreachable. Ids come from a process-local counter starting at 1 and are
// not stable across restarts. All methods are safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	notes  []models.Note
	nextID int
}

// NewMemory creates an empty fallback store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Create appends the note and assigns the next counter id.
func (m *Memory) Create(_ context.Context, note *models.Note) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *note
	stored.ID = strconv.Itoa(m.nextID)
	m.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.notes = append(m.notes, stored)
	return &stored, nil
}

// ListByOwner returns the owner's notes newest-first.
func (m *Memory) ListByOwner(_ context.Context, userID string) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Note, 0)
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByOwnerAndID removes at most one note. The find and the splice run
// under the same lock so a concurrent create cannot be lost.
func (m *Memory) DeleteByOwnerAndID(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.notes {
		if n.ID == id && n.UserID == userID {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// MarkEmailSent flips emailSent on the matching note. A missing id is a
// no-op: the dispatch already happened and there is nothing to roll back.
func (m *Memory) MarkEmailSent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.notes {
		if m.notes[i].ID == id && !m.notes[i].EmailSent {
			m.notes[i].EmailSent = true
			sentAt := at
			m.notes[i].EmailSentAt = &sentAt
		}
	}
	return nil
}

// Len reports how many notes the fallback store currently holds.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}
