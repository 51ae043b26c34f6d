package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/response"
	"github.com/noah-isme/desa-layanan-api/pkg/ws"
)

type notificationService interface {
	List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int, error)
	MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHandler exposes requester notifications and the realtime feed.
type NotificationHandler struct {
	service notificationService
	hub     *ws.Hub
	logger  *zap.Logger
}

// NewNotificationHandler constructs the handler. A nil hub disables the websocket feed.
func NewNotificationHandler(service notificationService, hub *ws.Hub, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{service: service, hub: hub, logger: logger}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification service not configured"))
		return
	}
	var query dto.NotificationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, err := h.service.List(c.Request.Context(), actorFromContext(c), query.UnreadOnly, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification service not configured"))
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UnreadCountResponse{Unread: count})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification service not configured"))
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// Stream godoc
// @Summary Subscribe to realtime notifications over websocket
// @Tags Notifications
// @Param access_token query string false "Access token when headers cannot be set"
// @Success 101
// @Router /notifications/ws [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "realtime feed not configured"))
		return
	}
	actor := actorFromContext(c)
	if actor.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return
	}
	client := ws.NewClient(actor.UserID, conn)
	h.hub.Register(client)
	go client.WritePump(h.logger)
	client.ReadPump(h.hub)
}
