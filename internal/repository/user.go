package repository

import (
	"context"

	"ludobackend/internal/domain"
)

// UserRepository stores account records used by auth and display-name
// resolution.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}
