package repository

import (
	"context"
	"time"

	"ludobackend/internal/domain"
)

// GameEventRepository appends to and reads the room's immutable event log.
type GameEventRepository interface {
	Append(ctx context.Context, event *domain.GameEvent) error
	ListByRoom(ctx context.Context, roomID uint, limit int) ([]domain.GameEvent, error)
	DeleteByRoom(ctx context.Context, roomID uint) error
	// DeleteOlderThan removes every event created before cutoff, across all
	// rooms, and reports how many rows were removed. Backs the periodic
	// event-log compaction task (§6's GAME_MOVE_LOG_TTL_SECONDS).
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
