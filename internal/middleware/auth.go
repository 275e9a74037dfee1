package middleware

import (
	"context"
	"net/http"

	"github.com/xisxus/ConnectApp/internal/auth"
)

type contextKey string

const UsernameKey contextKey = "username"

// AuthMiddleware verifies the signed identity cookie and stores the username
// in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.IdentityCookie)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		username, err := auth.VerifyIdentity(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UsernameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Username returns the authenticated username from the request context, or ""
// if the request did not pass through AuthMiddleware.
func Username(r *http.Request) string {
	username, _ := r.Context().Value(UsernameKey).(string)
	return username
}
