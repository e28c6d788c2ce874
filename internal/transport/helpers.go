package transport

import (
	"errors"
	"net/http"

	"apteka/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errNoAuthenticatedUser = errors.New("no authenticated user in request context")

// currentUserID extracts the authenticated user's ID from the request
// context populated by the auth middleware
func currentUserID(r *http.Request) (uuid.UUID, error) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, errNoAuthenticatedUser
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, errNoAuthenticatedUser
	}

	return userID, nil
}

// isStaff reports whether the authenticated request carries a staff role
func isStaff(r *http.Request) bool {
	role, ok := middleware.GetUserRole(r.Context())
	return ok && (role == "pharmacist" || role == "admin")
}

// idParam parses a uuid path parameter
func idParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
