package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// NotesHandler manages note endpoints nested under a ticket.
type NotesHandler struct {
	service *service.NoteService
}

// NewNotesHandler constructs handler.
func NewNotesHandler(noteService *service.NoteService) *NotesHandler {
	return &NotesHandler{service: noteService}
}

// ListNotes GET /tickets/:ticketId/notes.
func (h *NotesHandler) ListNotes(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	notes, err := h.service.ListNotes(c.Context(), principal.User.ID, c.Params("ticketId"))
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, noteResponse(&notes[i]))
	}
	return c.JSON(items)
}

// AddNote POST /tickets/:ticketId/notes.
func (h *NotesHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	note, err := h.service.AddNote(c.Context(), principal.User.ID, c.Params("ticketId"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(noteResponse(note))
}

func noteResponse(note *domain.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:        note.ID,
		Ticket:    note.TicketID,
		User:      note.UserID,
		Text:      note.Text,
		IsStaff:   note.IsStaff,
		CreatedAt: note.CreatedAt,
	}
}
