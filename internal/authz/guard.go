// Package authz implements ownership-based access decisions. Every guarded
// operation follows the same chain: load the resource, translate a missing
// resource into NotFound, then compare the stored owner identifier against
// the acting user. A non-existent resource always yields NotFound, never
// Unauthorized, regardless of who asks.
package authz

import (
	"context"
	"strings"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Owned is implemented by resources subject to ownership checks.
type Owned interface {
	OwnerID() string
}

// Allowed decides whether actorID may act on a resource owned by ownerID.
// Identifiers are compared as normalized strings, never by object identity.
func Allowed(ownerID, actorID string) bool {
	ownerID = strings.TrimSpace(ownerID)
	actorID = strings.TrimSpace(actorID)
	return ownerID != "" && ownerID == actorID
}

// RequireOwner returns Unauthorized when the actor does not own the resource.
func RequireOwner(resource Owned, actorID string) error {
	if !Allowed(resource.OwnerID(), actorID) {
		return apperrors.NewUnauthorized("not authorized")
	}
	return nil
}

// Guarded runs the load-check-authorize chain shared by every resource
// operation: it invokes load, maps an empty result to NotFound under the
// given resource name, and then enforces ownership for the actor.
func Guarded[T Owned](ctx context.Context, name string, actorID string, load func(context.Context) (T, error)) (T, error) {
	resource, err := load(ctx)
	if err != nil {
		var zero T
		if apperrors.IsNoRows(err) {
			return zero, apperrors.NewNotFound(name, nil)
		}
		return zero, err
	}
	if err := RequireOwner(resource, actorID); err != nil {
		var zero T
		return zero, err
	}
	return resource, nil
}
