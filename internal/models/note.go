// Package models defines the domain types for LeadNotes.
package models

import "time"

// Note is a short text note owned by a single user.
//
// ID is assigned by whichever store persisted the note: a MongoDB ObjectID
// hex string in durable mode, or a process-local counter in fallback mode.
// Fallback ids are not stable across restarts.
type Note struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Text      string    `bson:"text" json:"text"`
	UserID    string    `bson:"userId" json:"userId"`
	UserEmail string    `bson:"userEmail,omitempty" json:"userEmail,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	EmailSent bool      `bson:"emailSent" json:"emailSent"`
	// EmailSentAt is set exactly once, when EmailSent flips to true.
	EmailSentAt *time.Time `bson:"emailSentAt,omitempty" json:"emailSentAt,omitempty"`
}
