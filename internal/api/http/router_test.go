package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type memUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.nextID++
	user.ID = fmt.Sprintf("u%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTicketRepo struct {
	tickets map[string]*domain.Ticket
	nextID  int
	notes   *memNoteRepo
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = fmt.Sprintf("t%d", r.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

// Delete removes the ticket and cascades to its notes, mirroring the FK.
func (r *memTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	if r.notes != nil {
		delete(r.notes.byTicket, id)
	}
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *memTicketRepo) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.UserID == userID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

type memNoteRepo struct {
	byTicket map[string][]domain.Note
	nextID   int
}

func (r *memNoteRepo) Create(_ context.Context, note *domain.Note) error {
	r.nextID++
	note.ID = fmt.Sprintf("n%d", r.nextID)
	note.CreatedAt = time.Now()
	r.byTicket[note.TicketID] = append(r.byTicket[note.TicketID], *note)
	return nil
}

func (r *memNoteRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Note, error) {
	return append([]domain.Note{}, r.byTicket[ticketID]...), nil
}

// ---------------------------------------------------------------------------
// Test app wiring
// ---------------------------------------------------------------------------

func newTestApp(t *testing.T) (*fiber.App, *auth.TokenManager, *memUserRepo) {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
	}

	userRepo := &memUserRepo{users: make(map[string]*domain.User)}
	noteRepo := &memNoteRepo{byTicket: make(map[string][]domain.Note)}
	ticketRepo := &memTicketRepo{tickets: make(map[string]*domain.Ticket), notes: noteRepo}

	dispatcher := events.NewInMemoryDispatcher()
	authService := service.NewAuthService(cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{TicketRepo: ticketRepo, Dispatcher: dispatcher})
	noteService := service.NewNoteService(service.NoteDependencies{TicketRepo: ticketRepo, NoteRepo: noteRepo, Dispatcher: dispatcher})

	logger := zap.NewNop()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notes:          handlers.NewNotesHandler(noteService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo, logger),
	})
	return app, authService.TokenManager(), userRepo
}

func signupUser(t *testing.T, repo *memUserRepo, tokens *auth.TokenManager, name string) (string, string) {
	t.Helper()
	user := &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), user))
	token, _, err := tokens.GenerateToken(user.ID)
	require.NoError(t, err)
	return user.ID, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func doJSONList(t *testing.T, app *fiber.App, path, token string) (*http.Response, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTicketLifecycle(t *testing.T) {
	t.Parallel()

	app, tokens, users := newTestApp(t)
	userA, tokenA := signupUser(t, users, tokens, "alice")
	_, tokenB := signupUser(t, users, tokens, "bob")

	// A creates a ticket.
	resp, created := doJSON(t, app, http.MethodPost, "/tickets", tokenA, map[string]string{
		"product":     "laptop",
		"description": "won't boot",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "new", created["status"])
	require.Equal(t, userA, created["user"])
	ticketID := created["id"].(string)

	// B may not see it; existence is confirmed before ownership.
	resp, _ = doJSON(t, app, http.MethodGet, "/tickets/"+ticketID, tokenB, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A reads it back.
	resp, got := doJSON(t, app, http.MethodGet, "/tickets/"+ticketID, tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "laptop", got["product"])
	require.Equal(t, "won't boot", got["description"])

	// A adds a note.
	resp, note := doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/notes", tokenA, map[string]string{
		"text": "checked power supply",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "checked power supply", note["text"])
	require.Equal(t, false, note["isStaff"])
	require.Equal(t, userA, note["user"])

	// A deletes the ticket.
	resp, deleted := doJSON(t, app, http.MethodDelete, "/tickets/"+ticketID, tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, deleted["success"])

	// Gone now, even for the owner.
	resp, _ = doJSON(t, app, http.MethodGet, "/tickets/"+ticketID, tokenA, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTicketRoutesRequireAuth(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/tickets"},
		{http.MethodPost, "/tickets"},
		{http.MethodGet, "/tickets/t1"},
		{http.MethodPut, "/tickets/t1"},
		{http.MethodDelete, "/tickets/t1"},
		{http.MethodGet, "/tickets/t1/notes"},
		{http.MethodPost, "/tickets/t1/notes"},
	} {
		resp, _ := doJSON(t, app, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestStaleTokenIsRejectedEverywhere(t *testing.T) {
	t.Parallel()

	app, tokens, _ := newTestApp(t)

	// Valid signature, but the subject has no user record.
	ghost, _, err := tokens.GenerateToken("ghost")
	require.NoError(t, err)

	resp, _ := doJSON(t, app, http.MethodGet, "/tickets", ghost, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateTicketValidation(t *testing.T) {
	t.Parallel()

	app, tokens, users := newTestApp(t)
	_, tokenA := signupUser(t, users, tokens, "alice")

	resp, _ := doJSON(t, app, http.MethodPost, "/tickets", tokenA, map[string]string{"product": "laptop"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, list := doJSONList(t, app, "/tickets", tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, list, "rejected creation must not persist")
}

func TestUpdateTicketIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	app, tokens, users := newTestApp(t)
	userA, tokenA := signupUser(t, users, tokens, "alice")
	_, tokenB := signupUser(t, users, tokens, "bob")

	resp, created := doJSON(t, app, http.MethodPost, "/tickets", tokenA, map[string]string{
		"product":     "laptop",
		"description": "won't boot",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ticketID := created["id"].(string)

	// The owner field in the body is not on the allow-list and is dropped.
	resp, updated := doJSON(t, app, http.MethodPut, "/tickets/"+ticketID, tokenA, map[string]string{
		"status": "closed",
		"user":   "someone-else",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "closed", updated["status"])
	require.Equal(t, userA, updated["user"])

	// Non-owners cannot update at all.
	resp, _ = doJSON(t, app, http.MethodPut, "/tickets/"+ticketID, tokenB, map[string]string{"status": "new"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotesEndpoints(t *testing.T) {
	t.Parallel()

	app, tokens, users := newTestApp(t)
	_, tokenA := signupUser(t, users, tokens, "alice")
	_, tokenB := signupUser(t, users, tokens, "bob")

	resp, created := doJSON(t, app, http.MethodPost, "/tickets", tokenA, map[string]string{
		"product":     "laptop",
		"description": "won't boot",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ticketID := created["id"].(string)

	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/"+ticketID+"/notes", tokenA, map[string]string{"text": "first"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, notes := doJSONList(t, app, "/tickets/"+ticketID+"/notes", tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, notes, 1)

	// Notes are guarded by the parent ticket's owner.
	resp, _ = doJSON(t, app, http.MethodGet, "/tickets/"+ticketID+"/notes", tokenB, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A missing parent ticket is NotFound, not a blind ownership failure.
	resp, _ = doJSON(t, app, http.MethodGet, "/tickets/missing/notes", tokenA, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t)

	resp, registered := doJSON(t, app, http.MethodPost, "/auth/users/register", "", map[string]string{
		"name":     "carol",
		"email":    "carol@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, registered["auth"].(map[string]any)["token"])

	resp, loggedIn := doJSON(t, app, http.MethodPost, "/auth/users/login", "", map[string]string{
		"email":    "carol@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := loggedIn["auth"].(map[string]any)["token"].(string)

	resp, me := doJSON(t, app, http.MethodGet, "/auth/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "carol@example.com", me["email"])

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/users/login", "", map[string]string{
		"email":    "carol@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
