package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		ownerID string
		actorID string
		want    bool
	}{
		{"owner matches", "u1", "u1", true},
		{"different user", "u1", "u2", false},
		{"empty owner never matches", "", "", false},
		{"whitespace normalized", " u1 ", "u1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Allowed(tc.ownerID, tc.actorID))
		})
	}
}

func TestRequireOwner_Deny(t *testing.T) {
	t.Parallel()

	ticket := &domain.Ticket{ID: "t1", UserID: "owner"}
	err := RequireOwner(ticket, "intruder")
	require.Error(t, err)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestGuarded_MissingResourceIsNotFound(t *testing.T) {
	t.Parallel()

	// A non-existent resource yields NotFound even for a non-owner; the
	// existence check always runs first.
	_, err := Guarded(context.Background(), "ticket", "anyone", func(context.Context) (*domain.Ticket, error) {
		return nil, pgx.ErrNoRows
	})
	require.Error(t, err)
	requireStatus(t, err, http.StatusNotFound)
}

func TestGuarded_ForeignResourceIsUnauthorized(t *testing.T) {
	t.Parallel()

	_, err := Guarded(context.Background(), "ticket", "intruder", func(context.Context) (*domain.Ticket, error) {
		return &domain.Ticket{ID: "t1", UserID: "owner"}, nil
	})
	require.Error(t, err)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestGuarded_OwnerGetsResource(t *testing.T) {
	t.Parallel()

	ticket, err := Guarded(context.Background(), "ticket", "owner", func(context.Context) (*domain.Ticket, error) {
		return &domain.Ticket{ID: "t1", UserID: "owner"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "t1", ticket.ID)
}

func TestGuarded_LoaderFailurePassesThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	_, err := Guarded(context.Background(), "ticket", "owner", func(context.Context) (*domain.Ticket, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, status, de.HTTPStatus)
}
