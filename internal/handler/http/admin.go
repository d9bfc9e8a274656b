package http

import (
	"log/slog"
	"net/http"

	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/validator"
)

// AdminHandler handles administrative session operations. Routes using it
// are mounted behind the gate with the admin role required.
type AdminHandler struct {
	registry *service.SessionRegistry
	logger   *slog.Logger
}

// NewAdminHandler creates an admin HTTP handler.
func NewAdminHandler(registry *service.SessionRegistry, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{registry: registry, logger: logger}
}

// RevokeAllSessionsRequest is the JSON request body for a forced logout.
type RevokeAllSessionsRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// RevokeAllSessions handles POST /api/v1/admin/revoke-all-sessions.
func (h *AdminHandler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RevokeAllSessionsRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	revoked, err := h.registry.RevokeAllForUser(r.Context(), req.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{
		"revoked": revoked,
	}})
}
