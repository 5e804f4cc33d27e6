package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 10 * 1024
)

// NotificationHandler handles notification-related requests
type NotificationHandler struct {
	service  notification.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewNotificationHandler creates a new notification handler. checkOrigin may be nil to allow any origin.
func NewNotificationHandler(service notification.Service, logger *zap.Logger, checkOrigin func(r *http.Request) bool) *NotificationHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &NotificationHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// List godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Param type query string false "Notification type"
// @Success 200 {object} dto.ListResponse[notification.Notification]
// @Router /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	q, ok := bindQuery[dto.NotificationQuery](c)
	if !ok {
		return
	}
	caller := callerOf(c)
	items, err := h.service.List(c.Request.Context(), caller, q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	unread, err := h.service.CountUnread(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	resp := dto.NewListResponse(items, int64(len(items)), q.Page, q.Size())
	c.JSON(http.StatusOK, gin.H{"data": resp, "unread": unread})
}

func (h *NotificationHandler) CountUnread(c *gin.Context) {
	count, err := h.service.CountUnread(c.Request.Context(), callerOf(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.CountResponse{Count: int64(count)}})
}

// Create godoc
// @Summary Create a notification
// @Description Users may notify themselves; admins may notify anyone
// @Tags notifications
// @Security BearerAuth
// @Param request body dto.CreateNotificationRequest true "Notification"
// @Success 201 {object} notification.Notification
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	req, ok := bind[dto.CreateNotificationRequest](c)
	if !ok {
		return
	}
	caller := callerOf(c)
	recipient := caller.ID
	if req.UserID != nil {
		recipient = *req.UserID
	}
	n, err := h.service.Create(c.Request.Context(), caller, notification.Draft{
		UserID:      recipient,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": n})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkAsRead(c.Request.Context(), callerOf(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": n})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	count, err := h.service.MarkAllAsRead(c.Request.Context(), callerOf(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.CountResponse{Count: count}})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), callerOf(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type wsCommand struct {
	Command string `json:"command"`
	ID      string `json:"id"`
}

type wsCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// offerLatest puts n in a one-slot channel, replacing a value not yet consumed
func offerLatest(ch chan int, n int) {
	for {
		select {
		case ch <- n:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// WebSocket streams new notifications to the caller. Clients may send
// {"command":"mark_read","id":...} or {"command":"mark_all_read"}.
func (h *NotificationHandler) WebSocket(c *gin.Context) {
	caller := callerOf(c)
	ctx := c.Request.Context()

	notifications, cancel, err := h.service.SubscribeToNotifications(caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer cancel()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to WebSocket",
			zap.String("user_id", caller.ID.String()),
			zap.Error(err))
		return
	}
	defer ws.Close()
	h.logger.Info("WebSocket connected", zap.String("user_id", caller.ID.String()))

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// gorilla allows one concurrent writer; the reader only hands counts back
	counts := make(chan int, 1)
	sendCount := func() {
		n, err := h.service.CountUnread(ctx, caller)
		if err != nil {
			h.logger.Warn("Failed to count unread notifications", zap.Error(err))
			return
		}
		offerLatest(counts, n)
	}
	sendCount()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Warn("WebSocket read error", zap.String("user_id", caller.ID.String()), zap.Error(err))
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var cmd wsCommand
			if err := json.Unmarshal(message, &cmd); err != nil {
				continue
			}
			switch cmd.Command {
			case "mark_read":
				if id, err := uuid.Parse(cmd.ID); err == nil {
					if _, err := h.service.MarkAsRead(ctx, caller, id); err != nil {
						h.logger.Debug("WebSocket mark_read refused", zap.Error(err))
					}
				}
			case "mark_all_read":
				if _, err := h.service.MarkAllAsRead(ctx, caller); err != nil {
					h.logger.Warn("WebSocket mark_all_read failed", zap.Error(err))
				}
			default:
				continue
			}
			sendCount()
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if err := ws.WriteJSON(n); err != nil {
				return
			}
			sendCount()
		case n := <-counts:
			if err := ws.WriteJSON(wsCount{Type: "count", Count: n}); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
