package middleware

import (
	"context"
	"net/http"
	"strings"

	"taskhive/backend/logging"
	"taskhive/backend/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id placed on the context by
// JWTAuthMiddleware, or "" for unauthenticated requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(utils.TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// JWTAuthMiddleware rejects requests without a valid identity token before
// any handler can touch the store. The token travels in an HTTP-only cookie,
// with a bearer header fallback for non-browser clients.
func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)
		if tokenStr == "" {
			logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_TOKEN, Description: Identity token missing for request to %s %s", r.Method, r.URL.Path)
			http.Error(w, "Not authorized, no token", http.StatusUnauthorized)
			return
		}

		claims, err := utils.ValidateToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token for request to %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Not authorized, token failed", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
