package handlers

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/integrity-watch/report-service/internal/auth"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/realtime"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

const socketUserKey = "socket_user"

// SocketHandler upgrades authenticated requests to websocket connections.
type SocketHandler struct {
	hub   *realtime.Hub
	authn *auth.AuthMiddleware
}

// NewSocketHandler constructs handler.
func NewSocketHandler(hub *realtime.Hub, authn *auth.AuthMiddleware) *SocketHandler {
	return &SocketHandler{hub: hub, authn: authn}
}

// Upgrade authenticates the token query parameter (or bearer header) before the handshake.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	}
	if token == "" {
		return apperrors.NewUnauthorized("token required")
	}
	principal, err := h.authn.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(socketUserKey, principal.User)
	return c.Next()
}

// Serve runs the connection until the client goes away.
func (h *SocketHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(socketUserKey).(*domain.User)
		if !ok || user == nil {
			_ = conn.Close()
			return
		}
		h.hub.Serve(conn, user)
	})
}
