package dto

import "time"

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Text string `json:"text"`
}

// NoteResponse is the wire shape for a note.
type NoteResponse struct {
	ID        string    `json:"id"`
	Ticket    string    `json:"ticket"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	IsStaff   bool      `json:"isStaff"`
	CreatedAt time.Time `json:"createdAt"`
}
