package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Product     string `json:"product"`
	Description string `json:"description"`
}

// UpdateTicketRequest payload. Only the allow-listed fields are applied;
// anything else in the body is ignored.
type UpdateTicketRequest struct {
	Product     *string              `json:"product"`
	Description *string              `json:"description"`
	Status      *domain.TicketStatus `json:"status"`
}

// TicketResponse is the wire shape for a ticket.
type TicketResponse struct {
	ID          string              `json:"id"`
	User        string              `json:"user"`
	Product     string              `json:"product"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}
