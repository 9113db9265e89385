package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"user-service/internal/policy"
	"user-service/internal/service"
	"user-service/internal/util"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
	Count    int `json:"count,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	util.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode maps service sentinel errors to HTTP status codes.
// Misconfiguration of the rate limiter is an operator problem and
// surfaces as a 500, never a client error.
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSettingsNotFound),
		errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownScope):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, policy.ErrLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, service.ErrOTPInvalid),
		errors.Is(err, service.ErrAccountJustLocked),
		errors.Is(err, service.ErrAlreadyFollowing),
		errors.Is(err, service.ErrSettingsActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
