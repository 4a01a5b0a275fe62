// Package hub is the realtime fan-out layer: one process-wide dispatch loop
// that relays room patches and social chatter to connected WebSocket clients.
// It does not mutate game state — that happens in internal/service under
// internal/gamecache's per-room actors — it only delivers the outcome.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// HubMessage is what Client goroutines hand off to the Hub's dispatch loop.
type HubMessage struct {
	Type    string
	RoomID  string
	UserID  uint
	Client  *Client
	RawData []byte
}

// Frame is the wire envelope for every message sent to a client, server- or
// client-originated alike.
type Frame struct {
	Type    string      `json:"type"`
	RoomID  string      `json:"roomId,omitempty"`
	UserID  uint        `json:"userId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// clientAction is the shape accepted from a client's text frame.
type clientAction struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

// socialEvents are the client-originated event types the hub relays without
// involving game-state mutation; anything else is ignored.
var socialEvents = map[string]bool{
	"room:chat":          true,
	"room:quick-message": true,
}

// Hub owns the set of connected clients, grouped by room and by user, and
// serializes all registration/unregistration/relay work through a single
// channel-driven loop.
type Hub struct {
	messageChan chan HubMessage

	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	users   map[uint]map[*Client]bool
	usersMu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[string]map[*Client]bool),
		users:       make(map[uint]map[*Client]bool),
	}
}

// Run drains the dispatch loop. Intended to be started with `go hub.Run()`.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("hub dispatch loop started")
	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "action":
			go h.handleClientAction(msg)
		default:
			log.Warnf("unknown hub message type %q from user %d in room %s", msg.Type, msg.UserID, msg.RoomID)
		}
	}
	log.Info("hub dispatch loop stopped")
}

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.RoomID(), "user_id": c.UserID()})

	h.roomsMu.Lock()
	if h.rooms[c.roomID] == nil {
		h.rooms[c.roomID] = make(map[*Client]bool)
	}
	h.rooms[c.roomID][c] = true
	h.roomsMu.Unlock()

	h.usersMu.Lock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]bool)
	}
	h.users[c.userID][c] = true
	h.usersMu.Unlock()

	logCtx.Info("client registered")
}

func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.RoomID(), "user_id": c.UserID()})

	h.roomsMu.Lock()
	if room, ok := h.rooms[c.roomID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	h.roomsMu.Unlock()

	h.usersMu.Lock()
	if set, ok := h.users[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	h.usersMu.Unlock()

	closeClientSend(c)
	logCtx.Info("client unregistered")
}

// closeClientSend is split out so that a second close of the same client's
// channel (e.g. read and write pump both erroring out around the same time)
// is recovered instead of crashing the hub.
func closeClientSend(c *Client) {
	defer func() { recover() }()
	close(c.send)
}

// handleClientAction relays a client-originated social event (chat, quick
// message) to the rest of the room. Game-mutating actions are not accepted
// over the socket; they go through the HTTP surface, whose handlers then call
// Broadcast with the resulting patch.
func (h *Hub) handleClientAction(msg HubMessage) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": msg.RoomID, "user_id": msg.UserID})

	var action clientAction
	if err := json.Unmarshal(msg.RawData, &action); err != nil {
		logCtx.WithError(err).Debug("dropping malformed client frame")
		return
	}
	if action.Type == "room:join" {
		return
	}
	if !socialEvents[action.Type] {
		logCtx.WithField("frame_type", action.Type).Debug("ignoring unsupported client frame type")
		return
	}

	frame := Frame{Type: action.Type, RoomID: msg.RoomID, UserID: msg.UserID, Payload: json.RawMessage(action.Message)}
	payload, err := json.Marshal(frame)
	if err != nil {
		logCtx.WithError(err).Error("failed to marshal relayed social frame")
		return
	}
	h.broadcastRaw(msg.RoomID, payload, msg.Client)
}

// Broadcast sends a server-originated event to every client subscribed to
// roomID. Unlike client-relayed social frames, the sender is never excluded
// since there is no client-side sender to skip.
func (h *Hub) Broadcast(roomID, eventType string, payload interface{}) {
	frame := Frame{Type: eventType, RoomID: roomID, Payload: payload}
	raw, err := json.Marshal(frame)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("failed to marshal broadcast frame")
		return
	}
	h.broadcastRaw(roomID, raw, nil)
}

// SendToUser delivers a frame to every connection the given user currently
// holds open, regardless of room — used for room:taunt-suggestions, which
// §6 routes to user:{id} rather than the room topic.
func (h *Hub) SendToUser(userID uint, eventType string, payload interface{}) {
	frame := Frame{Type: eventType, UserID: userID, Payload: payload}
	raw, err := json.Marshal(frame)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("failed to marshal user-targeted frame")
		return
	}
	h.usersMu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.usersMu.RUnlock()
	for _, c := range targets {
		deliver(c, raw)
	}
}

func (h *Hub) broadcastRaw(roomID string, message []byte, sender *Client) {
	h.roomsMu.RLock()
	room := h.rooms[roomID]
	targets := make([]*Client, 0, len(room))
	for c := range room {
		if c != sender {
			targets = append(targets, c)
		}
	}
	h.roomsMu.RUnlock()

	for _, c := range targets {
		deliver(c, message)
	}
}

func deliver(c *Client, message []byte) {
	select {
	case c.send <- message:
	default:
		logrus.WithFields(logrus.Fields{"room_id": c.RoomID(), "user_id": c.UserID()}).Warn("client send buffer full, dropping message")
	}
}

// QueueMessage is how Client goroutines hand work to the dispatch loop
// without risking a block if the loop is momentarily backed up.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{"message_type": msg.Type, "room_id": msg.RoomID, "user_id": msg.UserID}).Warn("hub message channel full, dropping")
		return false
	}
}

func (h *Hub) MessageChan() chan<- HubMessage { return h.messageChan }

// GetActiveRoomIDs reports every room with at least one connected client.
func (h *Hub) GetActiveRoomIDs() []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

// StopAllSubscriptions closes every connected client's send channel and
// drains the room/user indexes, used during graceful shutdown so WritePump
// goroutines exit instead of leaking.
func (h *Hub) StopAllSubscriptions() {
	h.roomsMu.Lock()
	var all []*Client
	for _, clients := range h.rooms {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
	h.roomsMu.Unlock()

	h.usersMu.Lock()
	h.users = make(map[uint]map[*Client]bool)
	h.usersMu.Unlock()

	for _, c := range all {
		closeClientSend(c)
	}
	logrus.WithField("component", "hub").Info("all subscriptions stopped")
}
