// Package websocket upgrades authenticated HTTP requests into realtime
// connections and registers them with the hub.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/apierror"
	"ludobackend/internal/hub"
	"ludobackend/internal/service"
)

// Handler upgrades GET /ws/room/:roomId into a realtime connection after
// confirming the room exists and the caller is authenticated.
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	rooms    *service.RoomCoordinator
}

func NewHandler(h *hub.Hub, rooms *service.RoomCoordinator) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	if rooms == nil {
		panic("RoomCoordinator cannot be nil for websocket Handler")
	}
	return &Handler{
		hub:   h,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": apierror.ErrUnauthorized.Message})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	roomIDStr := c.Param("roomId")
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomIDStr})

	if _, _, _, err := h.rooms.GetRoom(c.Request.Context(), roomIDStr); err != nil {
		apiErr := apierror.As(err)
		logCtx.WithError(err).Warn("websocket handler: room lookup failed")
		c.JSON(apiErr.HTTPStatus(), gin.H{"success": false, "error": apiErr.Message})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("websocket handler: upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, roomIDStr, userID)
	registerMsg := hub.HubMessage{Type: "register", Client: client, RoomID: client.RoomID(), UserID: client.UserID()}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("websocket handler: hub channel full, dropping connection")
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.Info("websocket handler: client registered")
}
