package domain

import "time"

type SeatStatus string

const (
	SeatWaiting  SeatStatus = "waiting"
	SeatPlaying  SeatStatus = "playing"
	SeatFinished SeatStatus = "finished"
)

// Seat is one player's slot in one room.
type Seat struct {
	ID        uint       `json:"-" gorm:"primaryKey"`
	RoomID    uint       `json:"-" gorm:"uniqueIndex:idx_room_color;uniqueIndex:idx_room_user;not null"`
	UserID    uint       `json:"-" gorm:"uniqueIndex:idx_room_user;not null"`
	Color     Color      `json:"color" gorm:"uniqueIndex:idx_room_color;type:varchar(16);not null"`
	Position  int        `json:"position" gorm:"not null"`
	TeamIndex *int       `json:"teamIndex"`
	Status    SeatStatus `json:"status" gorm:"type:varchar(16);not null;default:waiting"`
	Ready     bool       `json:"ready"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s Seat) PublicID() string     { return FormatID(s.ID) }
func (s Seat) PublicUserID() string { return FormatID(s.UserID) }
func (s Seat) PublicRoomID() string { return FormatID(s.RoomID) }

// Team is a derived, persisted snapshot of one team in team mode.
type Team struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	RoomID    uint   `json:"-" gorm:"uniqueIndex:idx_room_team;not null"`
	TeamIndex int    `json:"teamIndex" gorm:"uniqueIndex:idx_room_team;not null"`
	Name      string `json:"name"`
	SeatIDs   []uint `json:"seatIds" gorm:"serializer:json"`
}
