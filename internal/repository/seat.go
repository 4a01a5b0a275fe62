package repository

import (
	"context"

	"ludobackend/internal/domain"
)

// SeatRepository stores and retrieves a room's player-in-room records.
type SeatRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Seat, error)
	ListByRoom(ctx context.Context, roomID uint) ([]domain.Seat, error)
	FindByRoomAndUser(ctx context.Context, roomID, userID uint) (*domain.Seat, error)
	Save(ctx context.Context, seat *domain.Seat) error
	Delete(ctx context.Context, id uint) error
	DeleteByRoom(ctx context.Context, roomID uint) error
}
