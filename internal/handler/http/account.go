package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/validator"
)

// AccountHandler handles registration and the authenticated self views.
type AccountHandler struct {
	accounts *service.AccountService
	registry *service.SessionRegistry
	logger   *slog.Logger
}

// NewAccountHandler creates an account HTTP handler.
func NewAccountHandler(accounts *service.AccountService, registry *service.SessionRegistry, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, registry: registry, logger: logger}
}

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=200"`
	FullName string `json:"full_name" validate:"required,min=1,max=200"`
	Role     string `json:"role" validate:"required,oneof=buyer landlord agent"`
}

// SessionView is the listing shape for one session. Token material is never
// included.
type SessionView struct {
	ID         string     `json:"id"`
	LastSeenIP string     `json:"last_seen_ip,omitempty"`
	Current    bool       `json:"current"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Register handles POST /api/v1/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Roles:    []string{req.Role},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newUserSummary(user)})
}

// Me handles GET /api/v1/auth/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newUserSummary(principal.User)})
}

// Sessions handles GET /api/v1/auth/sessions.
func (h *AccountHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	page, perPage := paginationParams(r)
	sessions, total, err := h.registry.ListForUser(r.Context(), principal.User.ID, perPage, (page-1)*perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, newSessionView(&s, principal.Session.ID))
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: httputil.NewPaginatedResponse(views, total, page, perPage),
	})
}

func newSessionView(s *domain.Session, currentID string) SessionView {
	return SessionView{
		ID:         s.ID,
		LastSeenIP: s.LastSeenIP,
		Current:    s.ID == currentID,
		RevokedAt:  s.RevokedAt,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
	}
}

// paginationParams parses page/per_page query params with sane bounds.
func paginationParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 && v <= 100 {
		perPage = v
	}
	return page, perPage
}
