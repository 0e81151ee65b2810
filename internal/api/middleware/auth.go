package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/remardo/mkk-portal/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// SessionAuth resolves the bearer session token to an employee ID.
// Handlers downstream read it with GetUserID; an empty ID never reaches them.
func SessionAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
