package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"user-service/internal/auth"
	"user-service/internal/service"
)

type contextKey string

const actorKey contextKey = "actor"

// AuthMiddleware verifies the Bearer token and stores the acting user in
// the request context.
func AuthMiddleware(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondWithError(w, http.StatusUnauthorized,
					errors.New("missing bearer token"), "Authentication required")
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, err, "Invalid access token")
				return
			}

			actor := service.Actor{UserID: claims.UserID, UserType: claims.UserType}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

// actorFrom extracts the authenticated actor placed by AuthMiddleware.
func actorFrom(ctx context.Context) (service.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(service.Actor)
	return actor, ok
}
