package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/validator"
)

// OTPHandler handles verification code generation and redemption. These
// endpoints are unauthenticated: the caller does not have a usable account
// yet.
type OTPHandler struct {
	verifier *service.OTPVerifier
	logger   *slog.Logger
}

// NewOTPHandler creates an OTP HTTP handler.
func NewOTPHandler(verifier *service.OTPVerifier, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{verifier: verifier, logger: logger}
}

// GenerateOTPRequest is the JSON request body for requesting a code.
type GenerateOTPRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// VerifyOTPRequest is the JSON request body for redeeming a code.
type VerifyOTPRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// Generate handles POST /api/v1/auth/otp/generate.
func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req GenerateOTPRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	record, err := h.verifier.GenerateAndSend(r.Context(), req.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: map[string]any{
		"otp_id":     record.ID,
		"expires_at": record.ExpiresAt.Format(time.RFC3339),
	}})
}

// Verify handles POST /api/v1/auth/otp/verify.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req VerifyOTPRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	status, err := h.verifier.Verify(r.Context(), service.VerifyInput{
		UserID: req.UserID,
		Code:   req.Code,
		IP:     clientIP(r),
	})
	if err != nil {
		writeAuthFailure(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"user_id": req.UserID,
		"status":  status,
	}})
}
