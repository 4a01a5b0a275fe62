package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventRoomCreated      EventType = "room:created"
	EventPlayerJoined     EventType = "room:player-joined"
	EventPlayerLeft       EventType = "room:player-left"
	EventPlayerReady      EventType = "room:player-ready"
	EventSlotChange       EventType = "room:slot-change"
	EventTeamNames        EventType = "room:team-names"
	EventGameStart        EventType = "game:start"
	EventDiceRoll         EventType = "dice:roll"
	EventMove             EventType = "move"
	EventTurnAdvance      EventType = "turn:advance"
)

// GameEvent is an append-only audit record. Never mutated once created.
type GameEvent struct {
	ID           uint            `json:"-" gorm:"primaryKey"`
	RoomID       uint            `json:"-" gorm:"index:idx_room_created,priority:1;not null"`
	Type         EventType       `json:"type" gorm:"type:varchar(32);not null"`
	ActorUserID  *uint           `json:"actorUserId"`
	ActorSeatID  *uint           `json:"actorSeatId"`
	Revision     uint64          `json:"revision"`
	Payload      json.RawMessage `json:"payload" gorm:"type:longtext"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"index:idx_room_created,priority:2,sort:desc"`
}

func (e GameEvent) PublicRoomID() string { return FormatID(e.RoomID) }
