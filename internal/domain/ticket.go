package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew    TicketStatus = "new"
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is a known lifecycle state.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. UserID identifies the owner
// and never changes after creation.
type Ticket struct {
	ID          string
	UserID      string
	Product     string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID returns the owning user's identifier.
func (t *Ticket) OwnerID() string {
	return t.UserID
}
