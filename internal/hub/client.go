package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one WebSocket connection, scoped to a single room for its
// lifetime (the connection URL carries the room ID, mirroring the rest of
// this server's per-room request shape).
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID string
	userID uint
	send   chan []byte
}

func NewClient(h *Hub, conn *websocket.Conn, roomID string, userID uint) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		roomID: roomID,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func (c *Client) RoomID() string { return c.roomID }
func (c *Client) UserID() uint   { return c.userID }
func (c *Client) CloseConn()     { c.conn.Close() }

// Run starts the read and write pumps in their own goroutines.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump pumps frames from the socket to the hub's dispatch loop until the
// connection errors or closes, then requests its own unregistration.
func (c *Client) ReadPump() {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID})
	defer func() {
		select {
		case c.hub.messageChan <- HubMessage{Type: "unregister", Client: c}:
		case <-time.After(1 * time.Second):
			logCtx.Warn("timed out queuing unregister with hub")
		}
		c.conn.Close()
		logCtx.Info("read pump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("websocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		actionMsg := HubMessage{Type: "action", RoomID: c.roomID, UserID: c.userID, Client: c, RawData: message}
		select {
		case c.hub.messageChan <- actionMsg:
		default:
			logCtx.Warn("hub message channel full, dropping client frame")
		}
	}
}

// WritePump pumps frames from the client's own send buffer to the socket,
// plus a periodic ping to detect dead connections.
func (c *Client) WritePump() {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID})
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logCtx.Info("write pump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logCtx.WithError(err).Warn("failed to write message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.WithError(err).Warn("failed to send ping")
				return
			}
		}
	}
}
