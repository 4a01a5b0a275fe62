package domain

import "time"

type RoomMode string

const (
	ModeIndividual RoomMode = "individual"
	ModeTeam       RoomMode = "team"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type TauntMode string

const (
	TauntSuggestion TauntMode = "suggestion"
	TauntHybrid     TauntMode = "hybrid"
	TauntAuto       TauntMode = "auto"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomCompleted  RoomStatus = "completed"
)

// RoomSettings are chosen at creation time and fixed for the room's lifetime,
// except TeamNames which the host may rename before start.
type RoomSettings struct {
	MaxPlayers int        `json:"maxPlayers" gorm:"not null"`
	Mode       RoomMode   `json:"mode" gorm:"type:varchar(16);not null"`
	Visibility Visibility `json:"visibility" gorm:"type:varchar(16);not null"`
	TeamNames  []string   `json:"teamNames" gorm:"serializer:json"`
	TauntMode  TauntMode  `json:"tauntMode" gorm:"type:varchar(16);not null;default:suggestion"`
}

// Room is the persisted lobby/match record. GameBoard is embedded for the
// durable-store replace-on-flush convention (§4.5); it is nil until game:start.
type Room struct {
	ID                 uint       `json:"-" gorm:"primaryKey"`
	Code               string     `json:"code" gorm:"uniqueIndex;size:6;not null"`
	HostSeatID         string     `json:"hostSeatId" gorm:"size:32"`
	Settings           RoomSettings `json:"settings" gorm:"embedded;embeddedPrefix:settings_"`
	Status             RoomStatus `json:"status" gorm:"type:varchar(16);not null;default:waiting"`
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
	GameBoard          *GameBoard `json:"gameBoard" gorm:"serializer:json"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// PublicID is the opaque string identifier the core and the wire protocol use.
func (r Room) PublicID() string { return FormatID(r.ID) }
