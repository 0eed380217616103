package api

import "github.com/leadnotes/leadnotes/internal/models"

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

// DeleteNoteRequest is the optional body of DELETE /notes/{id}.
type DeleteNoteRequest struct {
	UserID string `json:"userId"`
}

// CreateNoteResponse is the created note plus a confirmation message and,
// when the mail transport produced one, a preview link.
type CreateNoteResponse struct {
	models.Note
	Message    string  `json:"message"`
	PreviewURL *string `json:"previewUrl"`
}

// MessageResponse carries a bare confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
