package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/FindNest-Estate/NestFind-sub000/internal/notify"
	"github.com/FindNest-Estate/NestFind-sub000/pkg/httputil"
)

// WSHandler upgrades authenticated clients onto the notify hub so they
// receive session-revocation and security events as they happen.
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a websocket HTTP handler.
func NewWSHandler(hub *notify.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Serve handles GET /api/v1/auth/ws.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("user_id", principal.User.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	userID := principal.User.ID
	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	// Clients only listen; the read loop exists to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
