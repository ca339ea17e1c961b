package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/runger/cmdvault/internal/storage"
)

type contextKey int

const userKey contextKey = iota

// requireUser resolves the bearer token to a user and stores it on the
// request context. Unknown or missing tokens get a 401.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing_token", "Authorization bearer token is required")
			return
		}

		user, err := s.store.GetUserByToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.writeError(w, http.StatusUnauthorized, "invalid_token", "Unknown or revoked token")
				return
			}
			s.logger.Error("token lookup failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal", "Failed to authenticate request")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requestUser returns the authenticated user placed by requireUser.
func requestUser(r *http.Request) *storage.User {
	user, _ := r.Context().Value(userKey).(*storage.User)
	return user
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
