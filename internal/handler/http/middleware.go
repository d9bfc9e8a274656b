package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/FindNest-Estate/NestFind-sub000/internal/service"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/logger"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, or nil on
// unprotected routes.
func PrincipalFromContext(ctx context.Context) *service.Principal {
	p, _ := ctx.Value(principalKey).(*service.Principal)
	return p
}

// Protect authorizes every request through the access control gate before it
// reaches the handler. With roles given, the caller must hold one of them.
// The gate re-reads session and user state per request; nothing is cached.
func Protect(gate *service.AccessControlGate, fallback *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return protect(fallback, func(ctx context.Context, token string) (*service.Principal, error) {
		return gate.Authorize(ctx, token, roles...)
	})
}

// ProtectAnyStatus authorizes like Protect but admits accounts in any
// lifecycle status. The self-service routes (profile, session listing,
// logout, event stream) use it so an unverified user can still see and end
// the session login granted them.
func ProtectAnyStatus(gate *service.AccessControlGate, fallback *slog.Logger) func(http.Handler) http.Handler {
	return protect(fallback, gate.AuthorizeAnyStatus)
}

func protect(fallback *slog.Logger, authorize func(context.Context, string) (*service.Principal, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "missing bearer token"},
				})
				return
			}

			principal, err := authorize(r.Context(), token)
			if err != nil {
				writeAuthFailure(w, r, err, fallback)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			ctx = logger.WithUserID(ctx, principal.User.ID)
			ctx = logger.WithSessionID(ctx, principal.Session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientIP returns the originating address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientFingerprint builds the identifying string hashed into each session.
func clientFingerprint(r *http.Request) string {
	return r.Header.Get("User-Agent") + "|" + r.Header.Get("Accept-Language")
}
