package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FindNest-Estate/NestFind-sub000/internal/auth"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/notify"
	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/health"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Authenticator *service.PasswordAuthenticator
	Accounts      *service.AccountService
	Verifier      *service.OTPVerifier
	Registry      *service.SessionRegistry
	Rotator       *service.RefreshTokenRotator
	Gate          *service.AccessControlGate
	Issuer        *auth.TokenIssuer
	Hub           *notify.Hub
	Health        *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("auth"))
	r.Use(middleware.Tracing("auth"))

	// Health and metrics endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, deps.PprofCIDRs, deps.Logger)

	authHandler := NewAuthHandler(deps.Authenticator, deps.Registry, deps.Rotator, deps.Issuer, deps.Logger)
	accountHandler := NewAccountHandler(deps.Accounts, deps.Registry, deps.Logger)
	otpHandler := NewOTPHandler(deps.Verifier, deps.Logger)
	adminHandler := NewAdminHandler(deps.Registry, deps.Logger)
	wsHandler := NewWSHandler(deps.Hub, deps.Logger)

	// Public auth endpoints
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore())

		r.Post("/api/v1/auth/register", accountHandler.Register)
		r.Post("/api/v1/auth/login", authHandler.Login)
		r.Post("/api/v1/auth/refresh", authHandler.Refresh)
		r.Post("/api/v1/auth/otp/generate", otpHandler.Generate)
		r.Post("/api/v1/auth/otp/verify", otpHandler.Verify)
	})

	// Authenticated self-service endpoints. Every request passes through the
	// gate; token claims alone never admit anyone. These routes accept any
	// account status so an unverified user can inspect and end their session.
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore())
		r.Use(ProtectAnyStatus(deps.Gate, deps.Logger))

		r.Post("/api/v1/auth/logout", authHandler.Logout)
		r.Get("/api/v1/auth/me", accountHandler.Me)
		r.Get("/api/v1/auth/sessions", accountHandler.Sessions)
	})

	// Realtime security events
	r.Group(func(r chi.Router) {
		r.Use(ProtectAnyStatus(deps.Gate, deps.Logger))
		r.Get("/api/v1/auth/ws", wsHandler.Serve)
	})

	// Admin endpoints
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore())
		r.Use(Protect(deps.Gate, deps.Logger, domain.RoleAdmin))

		r.Post("/api/v1/admin/revoke-all-sessions", adminHandler.RevokeAllSessions)
	})

	return r
}

// ContentTypeJSON rejects non-JSON bodies on mutating requests.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && ct != "application/json" && !hasJSONPrefix(ct) {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasJSONPrefix(ct string) bool {
	const prefix = "application/json;"
	return len(ct) >= len(prefix) && ct[:len(prefix)] == prefix
}
