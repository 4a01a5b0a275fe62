package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ludobackend/internal/domain"
)

// GormGameEventRepository is the GameEventRepository implementation over
// GORM/MySQL, backed by the {roomId, createdAt desc} secondary index.
type GormGameEventRepository struct {
	db *gorm.DB
}

func NewGormGameEventRepository(db *gorm.DB) *GormGameEventRepository {
	if db == nil {
		panic("database connection cannot be nil for GormGameEventRepository")
	}
	return &GormGameEventRepository{db: db}
}

func (r *GormGameEventRepository) Append(ctx context.Context, event *domain.GameEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("gorm: append game event (room: %d, type: %s): %w", event.RoomID, event.Type, err)
	}
	return nil
}

func (r *GormGameEventRepository) ListByRoom(ctx context.Context, roomID uint, limit int) ([]domain.GameEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []domain.GameEvent
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list events for room %d: %w", roomID, err)
	}
	return events, nil
}

func (r *GormGameEventRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.GameEvent{}).Error; err != nil {
		return fmt.Errorf("gorm: delete events for room %d: %w", roomID, err)
	}
	return nil
}

func (r *GormGameEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.GameEvent{})
	if tx.Error != nil {
		return 0, fmt.Errorf("gorm: compact event log older than %s: %w", cutoff, tx.Error)
	}
	return tx.RowsAffected, nil
}
