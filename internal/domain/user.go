package domain

import "time"

// User is the peripheral account record. Display-name resolution only; the
// core never branches on anything here besides Username.
type User struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:191;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:191"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) PublicID() string { return FormatID(u.ID) }
