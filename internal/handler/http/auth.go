package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FindNest-Estate/NestFind-sub000/internal/auth"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/validator"
)

// maxBodyBytes caps request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

// AuthHandler handles login, token refresh, and logout.
type AuthHandler struct {
	authenticator *service.PasswordAuthenticator
	registry      *service.SessionRegistry
	rotator       *service.RefreshTokenRotator
	issuer        *auth.TokenIssuer
	logger        *slog.Logger
}

// NewAuthHandler creates an auth HTTP handler.
func NewAuthHandler(
	authenticator *service.PasswordAuthenticator,
	registry *service.SessionRegistry,
	rotator *service.RefreshTokenRotator,
	issuer *auth.TokenIssuer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		registry:      registry,
		rotator:       rotator,
		issuer:        issuer,
		logger:        logger,
	}
}

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=200"`
	Portal   string `json:"portal" validate:"omitempty,oneof=customer agency"`
}

// RefreshRequest is the JSON request body for rotating a refresh token. The
// token may instead arrive in the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"omitempty,max=200"`
}

// TokenPairResponse carries a fresh access/refresh pair.
type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         *UserSummary `json:"user,omitempty"`
}

// UserSummary is the identity view returned on auth endpoints.
type UserSummary struct {
	ID       string        `json:"id"`
	Email    string        `json:"email"`
	FullName string        `json:"full_name"`
	Status   domain.Status `json:"status"`
	Roles    []string      `json:"roles"`
}

func newUserSummary(u *domain.User) *UserSummary {
	return &UserSummary{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Status:   u.Status,
		Roles:    u.Roles,
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ip := clientIP(r)
	user, err := h.authenticator.Authenticate(r.Context(), service.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       ip,
		Portal:   req.Portal,
	})
	if err != nil {
		writeAuthFailure(w, r, err, h.logger)
		return
	}

	session, err := h.registry.Create(r.Context(), service.CreateInput{
		User:        user,
		Fingerprint: clientFingerprint(r),
		IP:          ip,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	refreshToken, err := h.rotator.Issue(r.Context(), session.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	accessToken, err := h.issuer.Issue(user.ID, session.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, refreshToken, time.Until(session.ExpiresAt))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.issuer.Lifetime().Seconds()),
		User:         newUserSummary(user),
	}})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	presented := refreshTokenFromRequest(r)
	if presented == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "refresh token required"},
		})
		return
	}

	result, err := h.rotator.Rotate(r.Context(), presented, clientIP(r))
	if err != nil {
		clearRefreshCookie(w)
		writeAuthFailure(w, r, err, h.logger)
		return
	}

	session, err := h.registry.Verify(r.Context(), result.SessionID)
	if err != nil {
		clearRefreshCookie(w)
		writeAuthFailure(w, r, err, h.logger)
		return
	}

	accessToken, err := h.issuer.Issue(result.UserID, result.SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setRefreshCookie(w, result.RefreshToken, time.Until(session.ExpiresAt))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.issuer.Lifetime().Seconds()),
	}})
}

// Logout handles POST /api/v1/auth/logout. Requires authentication; revokes
// the caller's own session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	if err := h.registry.Revoke(r.Context(), principal.Session.ID, principal.User.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearRefreshCookie(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"message": "logged out",
	}})
}

// refreshTokenFromRequest prefers the body token over the cookie.
func refreshTokenFromRequest(r *http.Request) string {
	var req RefreshRequest
	if err := validator.DecodeAndValidate(r, &req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}
