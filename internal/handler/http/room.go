package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ludobackend/internal/apierror"
	"ludobackend/internal/domain"
	"ludobackend/internal/hub"
	"ludobackend/internal/service"
)

// RoomHandler exposes the Room/Game Coordinator's lifecycle and in-game
// operations over REST, per §6's route table. Every in-game operation that
// mutates board state re-broadcasts the returned patch over the realtime
// hub so connected clients converge without polling.
type RoomHandler struct {
	rooms *service.RoomCoordinator
	hub   *hub.Hub
}

func NewRoomHandler(rooms *service.RoomCoordinator, h *hub.Hub) *RoomHandler {
	if rooms == nil {
		panic("RoomCoordinator cannot be nil for RoomHandler")
	}
	if h == nil {
		panic("Hub cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms, hub: h}
}

// roomOut shadows domain.Room's unexported-on-the-wire ID with its opaque
// string form; domain.Room.ID itself carries json:"-".
type roomOut struct {
	domain.Room
	ID string `json:"id"`
}

func toRoomOut(room *domain.Room) roomOut {
	return roomOut{Room: *room, ID: room.PublicID()}
}

type seatOut struct {
	domain.Seat
	ID     string `json:"id"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func toSeatOut(seat *domain.Seat) seatOut {
	return seatOut{Seat: *seat, ID: seat.PublicID(), RoomID: seat.PublicRoomID(), UserID: seat.PublicUserID()}
}

func toSeatsOut(seats []domain.Seat) []seatOut {
	out := make([]seatOut, len(seats))
	for i := range seats {
		out[i] = toSeatOut(&seats[i])
	}
	return out
}

type eventOut struct {
	domain.GameEvent
	RoomID string `json:"roomId"`
}

func toEventsOut(events []domain.GameEvent) []eventOut {
	out := make([]eventOut, len(events))
	for i, e := range events {
		out[i] = eventOut{GameEvent: e, RoomID: e.PublicRoomID()}
	}
	return out
}

type createRoomRequest struct {
	MaxPlayers    int    `json:"maxPlayers" binding:"required"`
	Mode          string `json:"mode" binding:"required"`
	Visibility    string `json:"visibility" binding:"required"`
	SelectedColor string `json:"selectedColor"`
	TauntMode     string `json:"tauntMode"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	room, seat, err := h.rooms.CreateRoom(c.Request.Context(), uid, req.MaxPlayers,
		domain.RoomMode(req.Mode), domain.Visibility(req.Visibility), domain.Color(req.SelectedColor), domain.TauntMode(req.TauntMode))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room), "seat": toSeatOut(seat)})
}

type joinRoomRequest struct {
	Code          string `json:"code"`
	SelectedColor string `json:"selectedColor"`
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	room, seat, err := h.rooms.JoinRoom(c.Request.Context(), uid, req.Code, domain.Color(req.SelectedColor))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.broadcastSlotChange(room.PublicID())
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room), "seat": toSeatOut(seat)})
}

func (h *RoomHandler) JoinRoomByID(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	roomIDStr := c.Param("id")
	room, seat, err := h.rooms.JoinRoomByID(c.Request.Context(), uid, roomIDStr, domain.Color(req.SelectedColor))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.broadcastSlotChange(room.PublicID())
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room), "seat": toSeatOut(seat)})
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	roomIDStr := c.Param("id")
	if err := h.rooms.LeaveRoom(c.Request.Context(), uid, roomIDStr); err != nil {
		HandleServiceError(c, err)
		return
	}
	h.broadcastSlotChange(roomIDStr)
	Success(c, http.StatusOK, gin.H{"left": true})
}

type setReadyRequest struct {
	Ready bool `json:"ready"`
}

func (h *RoomHandler) SetReady(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req setReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	roomIDStr := c.Param("id")
	seat, err := h.rooms.SetReady(c.Request.Context(), uid, roomIDStr, req.Ready)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.broadcastSlotChange(roomIDStr)
	Success(c, http.StatusOK, gin.H{"seat": toSeatOut(seat)})
}

type setSlotRequest struct {
	SlotIndex int `json:"slotIndex"`
}

func (h *RoomHandler) SetSlot(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req setSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	roomIDStr := c.Param("id")
	seat, err := h.rooms.SetSlot(c.Request.Context(), uid, roomIDStr, req.SlotIndex)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.broadcastSlotChange(roomIDStr)
	Success(c, http.StatusOK, gin.H{"seat": toSeatOut(seat)})
}

type setTeamNamesRequest struct {
	TeamNames []string `json:"teamNames"`
}

func (h *RoomHandler) SetTeamNames(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req setTeamNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	roomIDStr := c.Param("id")
	room, err := h.rooms.SetTeamNames(c.Request.Context(), uid, roomIDStr, req.TeamNames)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventTeamNames), gin.H{"teamNames": room.Settings.TeamNames})
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room)})
}

func (h *RoomHandler) ListPublicRooms(c *gin.Context) {
	rooms, err := h.rooms.ListPublicRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	out := make([]roomOut, len(rooms))
	for i := range rooms {
		out[i] = toRoomOut(&rooms[i])
	}
	Success(c, http.StatusOK, gin.H{"rooms": out})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomIDStr := c.Param("id")
	room, seats, teams, err := h.rooms.GetRoom(c.Request.Context(), roomIDStr)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room), "seats": toSeatsOut(seats), "teams": teams})
}

func (h *RoomHandler) ListEvents(c *gin.Context) {
	roomIDStr := c.Param("id")
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.rooms.ListEvents(c.Request.Context(), roomIDStr, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, http.StatusOK, gin.H{"events": toEventsOut(events)})
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	roomIDStr := c.Param("id")
	room, err := h.rooms.StartGame(c.Request.Context(), uid, roomIDStr)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventGameStart), toRoomOut(room))
	Success(c, http.StatusOK, gin.H{"room": toRoomOut(room)})
}

func (h *RoomHandler) RollDice(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	roomIDStr := c.Param("id")
	outcome, err := h.rooms.RollDice(c.Request.Context(), uid, roomIDStr)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventDiceRoll), outcome.Patch)
	h.broadcastTaunts(c, roomIDStr, outcome.TauntEvents)
	Success(c, http.StatusOK, outcome)
}

type makeMoveRequest struct {
	TokenID   int    `json:"tokenId"`
	Color     string `json:"color"`
	DiceValue int    `json:"diceValue"`
}

func (h *RoomHandler) MakeMove(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	var req makeMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Failure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	roomIDStr := c.Param("id")
	outcome, err := h.rooms.MakeMove(c.Request.Context(), uid, roomIDStr, req.TokenID, domain.Color(req.Color), req.DiceValue)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventMove), outcome.Patch)
	h.broadcastTaunts(c, roomIDStr, outcome.TauntEvents)
	Success(c, http.StatusOK, outcome)
}

func (h *RoomHandler) AdvanceTurn(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		Failure(c, http.StatusUnauthorized, apierror.ErrUnauthorized.Message)
		return
	}
	roomIDStr := c.Param("id")
	patch, err := h.rooms.AdvanceTurn(c.Request.Context(), uid, roomIDStr)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventTurnAdvance), patch)
	Success(c, http.StatusOK, patch)
}

// broadcastSlotChange re-reads the room's current seats and fans out
// room:slot-change; called after every lifecycle operation that can change
// who occupies which color/slot.
func (h *RoomHandler) broadcastSlotChange(roomIDStr string) {
	_, seats, _, err := h.rooms.GetRoom(context.Background(), roomIDStr)
	if err != nil {
		return
	}
	h.hub.Broadcast(roomIDStr, string(domain.EventSlotChange), gin.H{"seats": toSeatsOut(seats)})
}

// broadcastTaunts resolves each taunt's target seat to its owning user and
// delivers it to that user alone, per §6's user:{id} routing for
// room:taunt-suggestions.
func (h *RoomHandler) broadcastTaunts(c *gin.Context, roomIDStr string, events []service.TauntEventOut) {
	if len(events) == 0 {
		return
	}
	_, seats, _, err := h.rooms.GetRoom(c.Request.Context(), roomIDStr)
	if err != nil {
		return
	}
	byID := make(map[string]domain.Seat, len(seats))
	for _, s := range seats {
		byID[s.PublicID()] = s
	}
	for _, t := range events {
		seat, ok := byID[t.TargetSeatID]
		if !ok {
			continue
		}
		h.hub.SendToUser(seat.UserID, "room:taunt-suggestions", t)
	}
}
