package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/huddlehq/huddle/internal/session"
)

// WSHandler upgrades /ws requests and hands the connection to the session
// supervisor. Credential verification happens inside the handshake, so the
// route is public at the Echo layer.
type WSHandler struct {
	supervisor *session.Supervisor
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWSHandler creates the live-session endpoint handler.
func NewWSHandler(log *slog.Logger, supervisor *session.Supervisor) *WSHandler {
	return &WSHandler{
		supervisor: supervisor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect cross-origin during development; the
			// credential check is the handshake's, not the origin's.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.With(slog.String("handler", "ws")),
	}
}

// Register mounts GET /ws on the Echo instance.
func (h *WSHandler) Register(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the request and runs the session until disconnect.
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Debug("upgrade failed", slog.String("error", err.Error()))
		return nil
	}
	_ = h.supervisor.HandleConn(conn, credentialFromRequest(c))
	return nil
}

// credentialFromRequest pulls the bearer credential from the Authorization
// header or, for browser WebSocket clients that cannot set headers, the
// token query parameter.
func credentialFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.QueryParam("token"))
}
