package middleware

import (
	"net/http"

	"headless/internal/auth"
)

// Auth rejects requests without an editor session.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return authService.RequireLogin
}
