package domain

import "time"

// Note captures a comment attached to a ticket. IsStaff marks notes written
// by support staff; notes created through the public API are always
// user-authored.
type Note struct {
	ID        string
	TicketID  string
	UserID    string
	Text      string
	IsStaff   bool
	CreatedAt time.Time
}
