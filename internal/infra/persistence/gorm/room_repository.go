package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"ludobackend/internal/domain"
	"ludobackend/internal/repository"
)

// GormRoomRepository is the RoomRepository implementation over GORM/MySQL.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", code, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, code: %s): %w", room.ID, room.Code, err)
	}
	return nil
}

func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Room{}, id).Error; err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, err)
	}
	return nil
}

func (r *GormRoomRepository) ListPublicWaiting(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("status = ? AND settings_visibility = ?", domain.RoomWaiting, domain.VisibilityPublic).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list public waiting rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code '%s': %w", code, err)
	}
	return count > 0, nil
}
