package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"user-service/internal/service"
	"user-service/internal/util"
)

// OTPHandler handles OTP issue and verification requests.
type OTPHandler struct {
	otpService *service.OTPService
}

func NewOTPHandler(otpService *service.OTPService) *OTPHandler {
	return &OTPHandler{otpService: otpService}
}

// RegisterRoutes registers the OTP routes. These are public: callers are
// not authenticated yet.
func (h *OTPHandler) RegisterRoutes(router chi.Router) {
	router.Route("/otp", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/verify", h.Verify)
	})
}

// Send issues an OTP to a phone number, subject to the rate limit.
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.otpService.SendOTP(ctx, req.Phone)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to send OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(result, "OTP sent successfully"))
	util.Info("OTP sent via HTTP",
		util.Duration("duration", time.Since(startTime)),
	)
}

// Verify checks a submitted OTP and logs the user in, registering the
// account first when the phone is new.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.otpService.VerifyOTP(ctx, req.Phone, req.OTP)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to verify OTP")
		return
	}

	status := http.StatusOK
	message := "OTP verified successfully"
	if result.Created {
		status = http.StatusCreated
		message = "Account created successfully"
	}

	respondWithJSON(w, status, successResponse(result, message))
	util.Info("OTP verified via HTTP",
		util.String("user_id", result.User.UserID),
		util.Bool("created", result.Created),
		util.Duration("duration", time.Since(startTime)),
	)
}
