package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"user-service/internal/service"
	"user-service/internal/util"
)

// AuthHandler handles session logout.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/logout", h.Logout)
}

// Logout invalidates the caller's session. Scope "local" drops only the
// current session, "global" drops every session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	var req struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.authService.Logout(ctx, actor.UserID, req.Scope); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to log out")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out successfully"))
	util.Info("User logged out via HTTP",
		util.String("user_id", actor.UserID),
		util.String("scope", req.Scope),
	)
}
