package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/chemtech-ke/pharmos-backend/api/middleware"
	"github.com/chemtech-ke/pharmos-backend/pkg/outbox"
)

const sessionHeader = "X-Till-Session"

// actorFrom rebuilds the acting user from the authenticated request context.
func actorFrom(r *http.Request) *outbox.ActorRef {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID:    userID,
		SessionID: r.Header.Get(sessionHeader),
		Role:      middleware.RoleFromContext(r.Context()),
	}
}
