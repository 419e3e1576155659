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
)

// NoteService manages notes scoped to a parent ticket. Authorization is
// always ticket-scoped: both operations check the parent ticket's existence
// and ownership before touching any note, so a missing ticket yields NotFound
// and a foreign ticket yields Unauthorized.
type NoteService struct {
	tickets    repository.TicketRepository
	notes      repository.NoteRepository
	dispatcher events.Dispatcher
}

// NoteDependencies bundles collaborators for the note service.
type NoteDependencies struct {
	TicketRepo repository.TicketRepository
	NoteRepo   repository.NoteRepository
	Dispatcher events.Dispatcher
}

// NewNoteService constructs the service.
func NewNoteService(deps NoteDependencies) *NoteService {
	return &NoteService{
		tickets:    deps.TicketRepo,
		notes:      deps.NoteRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ListNotes returns all notes on a ticket the user owns.
func (s *NoteService) ListNotes(ctx context.Context, userID, ticketID string) ([]domain.Note, error) {
	ticket, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.notes.ListByTicket(ctx, ticket.ID)
}

// AddNote attaches a note to a ticket the user owns. Notes created through
// this path are never staff notes.
func (s *NoteService) AddNote(ctx context.Context, userID, ticketID, text string) (*domain.Note, error) {
	ticket, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}

	note := &domain.Note{
		TicketID: ticket.ID,
		UserID:   userID,
		Text:     text,
		IsStaff:  false,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventNoteAdded,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload: events.NoteAddedPayload{
			NoteID:      note.ID,
			TextPreview: textPreview(note.Text, 120),
		},
	})
	return note, nil
}

func (s *NoteService) ownedTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	return authz.Guarded(ctx, "ticket", userID, func(ctx context.Context) (*domain.Ticket, error) {
		return s.tickets.GetByID(ctx, ticketID)
	})
}

func (s *NoteService) publishEvent(ctx context.Context, event events.Event) {
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

func textPreview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}
