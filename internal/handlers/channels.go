package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/channels"
)

// ChannelsHandler serves the durable channel CRUD and membership API.
type ChannelsHandler struct {
	service *channels.Service
	logger  *slog.Logger
}

// CreateChannelRequest is the body for POST /api/channels.
type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

// PrivacyRequest is the body for PATCH /api/channels/:id/privacy.
type PrivacyRequest struct {
	IsPrivate bool `json:"isPrivate"`
}

// RemoveUserRequest is the body for POST /api/channels/:id/remove-user.
type RemoveUserRequest struct {
	UserID string `json:"userId"`
}

// NewChannelsHandler creates a channels handler.
func NewChannelsHandler(log *slog.Logger, service *channels.Service) *ChannelsHandler {
	return &ChannelsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "channels")),
	}
}

// Register mounts the channel routes on the Echo instance.
func (h *ChannelsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/channels")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/join", h.Join)
	group.POST("/:id/leave", h.Leave)
	group.PATCH("/:id/privacy", h.SetPrivacy)
	group.POST("/:id/remove-user", h.RemoveUser)
	group.DELETE("/:id", h.Delete)
}

// List returns every channel visible to the requester.
func (h *ChannelsHandler) List(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	visible, err := h.service.ListVisible(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, visible)
}

// Create makes a channel owned by the requester.
func (h *ChannelsHandler) Create(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req CreateChannelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel name is required")
	}

	channel, err := h.service.Create(c.Request().Context(), userID, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		if errors.Is(err, channels.ErrNameTaken) {
			return echo.NewHTTPError(http.StatusBadRequest, "channel already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, channel)
}

// Get returns one channel with its members.
func (h *ChannelsHandler) Get(c echo.Context) error {
	if _, err := auth.UserIDFromContext(c); err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	channel, err := h.service.Get(c.Request().Context(), channelID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, channel)
}

// Join records the requester as a member.
func (h *ChannelsHandler) Join(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	channel, err := h.service.Join(c.Request().Context(), channelID, userID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, channel)
}

// Leave removes the requester from the member set.
func (h *ChannelsHandler) Leave(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	channel, err := h.service.Leave(c.Request().Context(), channelID, userID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, channel)
}

// SetPrivacy flips the privacy flag (owner only).
func (h *ChannelsHandler) SetPrivacy(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	var req PrivacyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	channel, err := h.service.SetPrivacy(c.Request().Context(), channelID, userID, req.IsPrivate)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, channel)
}

// RemoveUser drops a member from the channel (owner only).
func (h *ChannelsHandler) RemoveUser(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	var req RemoveUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := uuid.Parse(strings.TrimSpace(req.UserID)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if err := h.service.RemoveMember(c.Request().Context(), channelID, userID, req.UserID); err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "user removed successfully"})
}

// Delete removes the channel and its history (owner only).
func (h *ChannelsHandler) Delete(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	channelID, err := channelIDParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), channelID, userID); err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "channel deleted successfully"})
}

func (h *ChannelsHandler) mapError(err error) error {
	switch {
	case errors.Is(err, channels.ErrChannelNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "channel not found")
	case errors.Is(err, channels.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, "only the channel owner may do this")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func channelIDParam(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid channel id")
	}
	return id, nil
}
