package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"user-service/internal/service"
	"user-service/internal/util"
)

// SettingsHandler handles the OTP rate-limit settings CRUD. Parameters
// arrive as query strings; omitted values fall back to defaults.
type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Route("/otp-settings", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/active", h.GetActive)
		r.Get("/{settingsID}", h.Get)
		r.Put("/{settingsID}", h.Update)
		r.Delete("/{settingsID}", h.Delete)
	})
}

func (h *SettingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	query := r.URL.Query()
	settings, err := h.settingsService.Create(ctx, actor,
		query.Get("time_unit"), query.Get("time_units_count"), query.Get("max_otp_count"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create OTP settings")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(settings, "OTP settings created successfully"))
	util.Info("OTP settings created via HTTP", util.String("settings_id", settings.ID))
}

func (h *SettingsHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetActive(r.Context())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get active OTP settings")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(settings, "OTP settings retrieved successfully"))
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Get(r.Context(), chi.URLParam(r, "settingsID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get OTP settings")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(settings, "OTP settings retrieved successfully"))
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	query := r.URL.Query()
	settings, err := h.settingsService.Update(ctx, actor, chi.URLParam(r, "settingsID"),
		query.Get("time_unit"), query.Get("time_units_count"), query.Get("max_otp_count"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update OTP settings")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(settings, "OTP settings updated successfully"))
	util.Info("OTP settings updated via HTTP", util.String("settings_id", settings.ID))
}

func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorFrom(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated user"), "Authentication required")
		return
	}

	settingsID := chi.URLParam(r, "settingsID")
	if err := h.settingsService.Delete(ctx, actor, settingsID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to delete OTP settings")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "OTP settings deleted successfully"))
	util.Info("OTP settings deleted via HTTP", util.String("settings_id", settingsID))
}
