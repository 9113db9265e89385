package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"user-service/internal/service"
	"user-service/internal/util"
)

const maxPhotoUploadBytes = 10 << 20 // 10 MiB

// UserHandler handles HTTP requests for profiles, followers, and photos.
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes registers all user routes on an authenticated router.
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/{userID}", h.GetUser)
		r.Patch("/{userID}", h.UpdateProfile)
		r.Patch("/{userID}/status", h.SetAccountStatus)
		r.Put("/{userID}/photo", h.UploadPhoto)
		r.Post("/{userID}/followers", h.AddFollower)
		r.Get("/{userID}/followers", h.ListFollowers)
	})
}

// GetUser returns one user profile.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	userID := chi.URLParam(r, "userID")
	user, err := h.userService.GetProfile(ctx, userID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, "User retrieved successfully"))
	util.Debug("User retrieved via HTTP",
		util.String("user_id", userID),
		util.Duration("duration", time.Since(startTime)),
	)
}

// UpdateProfile applies a partial profile update.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	userID := chi.URLParam(r, "userID")

	var req service.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(ctx, actor, userID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, "Profile updated successfully"))
	util.Info("Profile updated via HTTP",
		util.String("user_id", userID),
		util.Duration("duration", time.Since(startTime)),
	)
}

// SetAccountStatus activates or suspends an account.
func (h *UserHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	userID := chi.URLParam(r, "userID")

	var req struct {
		AccountStatus string `json:"account_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.userService.SetAccountStatus(ctx, actor, userID, req.AccountStatus); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update account status")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Account status updated successfully"))
	util.Info("Account status updated via HTTP",
		util.String("user_id", userID),
		util.String("status", req.AccountStatus),
		util.Duration("duration", time.Since(startTime)),
	)
}

// AddFollower records that the request body's follower follows userID.
func (h *UserHandler) AddFollower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	userID := chi.URLParam(r, "userID")

	var req struct {
		FollowerID string `json:"follower_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.userService.AddFollower(ctx, userID, req.FollowerID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to add follower")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(nil, "Follower added successfully"))
	util.Info("Follower added via HTTP",
		util.String("user_id", userID),
		util.String("follower_id", req.FollowerID),
		util.Duration("duration", time.Since(startTime)),
	)
}

// ListFollowers returns one page of a user's followers. Pages past the
// end are empty 200s.
func (h *UserHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	userID := chi.URLParam(r, "userID")
	page := parsePositiveInt(r.URL.Query().Get("page"), service.DefaultPage)
	size := parsePositiveInt(r.URL.Query().Get("size"), service.DefaultPageSize)

	result, err := h.userService.ListFollowers(ctx, userID, page, size)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list followers")
		return
	}

	response := successResponse(result.Followers, "Followers retrieved successfully")
	response.Meta = &Meta{
		Page:     result.Page,
		PageSize: result.Size,
		Count:    len(result.Followers),
	}

	respondWithJSON(w, http.StatusOK, response)
	util.Debug("Followers listed via HTTP",
		util.String("user_id", userID),
		util.Int("page", result.Page),
		util.Int("count", len(result.Followers)),
		util.Duration("duration", time.Since(startTime)),
	)
}

// UploadPhoto accepts a multipart JPEG or PNG profile photo.
func (h *UserHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	userID := chi.URLParam(r, "userID")

	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Missing photo file")
		return
	}
	defer file.Close()

	url, err := h.userService.UploadProfilePhoto(ctx, actor, userID, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to upload photo")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]string{"profile_picture_url": url}, "Photo uploaded successfully"))
	util.Info("Profile photo uploaded via HTTP",
		util.String("user_id", userID),
		util.Duration("duration", time.Since(startTime)),
	)
}

// Search queries the profile search projection.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	term := r.URL.Query().Get("q")
	size := parsePositiveInt(r.URL.Query().Get("size"), 10)

	docs, err := h.userService.SearchProfiles(ctx, term, size)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(docs, "Search completed successfully"))
}

func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(s)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
