package repository

import (
	"context"

	"ludobackend/internal/domain"
)

// RoomRepository stores and retrieves Room documents.
type RoomRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Room, error)
	FindByCode(ctx context.Context, code string) (*domain.Room, error)
	Save(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id uint) error
	ListPublicWaiting(ctx context.Context) ([]domain.Room, error)
	IsCodeTaken(ctx context.Context, code string) (bool, error)
}
