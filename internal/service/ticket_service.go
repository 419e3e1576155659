package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket workflows. Every operation acts on behalf
// of an already-resolved user; ownership is enforced before any read or
// mutation of an existing ticket.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Product     string
	Description string
}

// TicketPatch carries the updatable ticket fields. Nil fields are left
// untouched; owner and timestamps are never patchable.
type TicketPatch struct {
	Product     *string
	Description *string
	Status      *domain.TicketStatus
}

// DeleteResult is the success marker returned after removal.
type DeleteResult struct {
	Success bool `json:"success"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ListTickets returns every ticket owned by the user. An empty result is not
// an error.
func (s *TicketService) ListTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

// GetTicket fetches a ticket, ensuring existence then ownership.
func (s *TicketService) GetTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	return s.ownedTicket(ctx, userID, ticketID)
}

// CreateTicket creates a ticket for a user with status "new".
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (*domain.Ticket, error) {
	product := strings.TrimSpace(input.Product)
	description := strings.TrimSpace(input.Description)
	if product == "" || description == "" {
		return nil, apperrors.NewValidationError("product and description required", nil)
	}

	ticket := &domain.Ticket{
		UserID:      userID,
		Product:     product,
		Description: description,
		Status:      domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload: events.TicketCreatedPayload{
			Product: ticket.Product,
			Status:  ticket.Status,
		},
	})
	return ticket, nil
}

// UpdateTicket applies an allow-listed patch to an owned ticket and returns
// the post-update record.
func (s *TicketService) UpdateTicket(ctx context.Context, userID, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if patch.Product != nil {
		ticket.Product = strings.TrimSpace(*patch.Product)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if !domain.ValidTicketStatus(*patch.Status) {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
		}
		ticket.Status = *patch.Status
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload: events.TicketUpdatedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// DeleteTicket removes an owned ticket. Notes attached to the ticket are
// removed with it by the storage layer.
func (s *TicketService) DeleteTicket(ctx context.Context, userID, ticketID string) (*DeleteResult, error) {
	ticket, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload: events.TicketDeletedPayload{
			Product: ticket.Product,
		},
	})
	return &DeleteResult{Success: true}, nil
}

func (s *TicketService) ownedTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	return authz.Guarded(ctx, "ticket", userID, func(ctx context.Context) (*domain.Ticket, error) {
		return s.tickets.GetByID(ctx, ticketID)
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
