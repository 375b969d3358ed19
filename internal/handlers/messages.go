package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/messages"
)

// MessagesHandler serves the durable message history API. This is the
// persistence half of the dual write path; the live broadcast over the
// session layer is independent of it and not coordinated with it.
type MessagesHandler struct {
	service *messages.Service
	logger  *slog.Logger
}

// CreateMessageRequest is the body for POST /api/messages.
type CreateMessageRequest struct {
	Content   string `json:"content"`
	ChannelID string `json:"channelId"`
}

// NewMessagesHandler creates a messages handler.
func NewMessagesHandler(log *slog.Logger, service *messages.Service) *MessagesHandler {
	return &MessagesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "messages")),
	}
}

// Register mounts the message routes on the Echo instance.
func (h *MessagesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/messages")
	group.GET("/:channelId", h.List)
	group.POST("", h.Create)
}

// List returns one page of a channel's history, ascending for display.
// Query params: page (default 1), limit (default 20).
func (h *MessagesHandler) List(c echo.Context) error {
	if _, err := auth.UserIDFromContext(c); err != nil {
		return err
	}
	channelID := strings.TrimSpace(c.Param("channelId"))
	if _, err := uuid.Parse(channelID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid channel id")
	}

	page := queryInt(c, "page", messages.DefaultPage)
	limit := queryInt(c, "limit", messages.DefaultLimit)

	result, err := h.service.List(c.Request().Context(), channelID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Create persists one message. A failure here is surfaced to the caller and
// never retried; it does not suppress any live broadcast that already ran.
func (h *MessagesHandler) Create(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if _, err := uuid.Parse(strings.TrimSpace(req.ChannelID)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid channel id")
	}

	message, err := h.service.Create(c.Request().Context(), req.Content, userID, req.ChannelID)
	if err != nil {
		if errors.Is(err, messages.ErrChannelNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "channel not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, message)
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
