package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/gatherkit/gatherd/internal/api"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user's ID from the request context, or
// the empty string for unauthenticated requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RequireAuth verifies the Bearer token and stores the caller's user ID on
// the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "missing bearer token")
			return
		}
		userID, err := h.tokens.Verify(token)
		if err != nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
