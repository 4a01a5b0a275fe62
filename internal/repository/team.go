package repository

import (
	"context"

	"ludobackend/internal/domain"
)

// TeamRepository stores the denormalized team-name snapshot for team-mode rooms.
type TeamRepository interface {
	ListByRoom(ctx context.Context, roomID uint) ([]domain.Team, error)
	Save(ctx context.Context, team *domain.Team) error
	DeleteByRoom(ctx context.Context, roomID uint) error
}
