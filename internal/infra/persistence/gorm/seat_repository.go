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

// GormSeatRepository is the SeatRepository implementation over GORM/MySQL.
type GormSeatRepository struct {
	db *gorm.DB
}

func NewGormSeatRepository(db *gorm.DB) *GormSeatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSeatRepository")
	}
	return &GormSeatRepository{db: db}
}

func (r *GormSeatRepository) FindByID(ctx context.Context, id uint) (*domain.Seat, error) {
	var seat domain.Seat
	err := r.db.WithContext(ctx).First(&seat, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSeatNotFound
		}
		return nil, fmt.Errorf("gorm: find seat by id %d: %w", id, err)
	}
	return &seat, nil
}

func (r *GormSeatRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.Seat, error) {
	var seats []domain.Seat
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("position ASC").Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list seats for room %d: %w", roomID, err)
	}
	return seats, nil
}

func (r *GormSeatRepository) FindByRoomAndUser(ctx context.Context, roomID, userID uint) (*domain.Seat, error) {
	var seat domain.Seat
	err := r.db.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSeatNotFound
		}
		return nil, fmt.Errorf("gorm: find seat by room %d and user %d: %w", roomID, userID, err)
	}
	return &seat, nil
}

func (r *GormSeatRepository) Save(ctx context.Context, seat *domain.Seat) error {
	err := r.db.WithContext(ctx).Save(seat).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save seat (id: %d, room: %d): %w", seat.ID, seat.RoomID, err)
	}
	return nil
}

func (r *GormSeatRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Seat{}, id).Error; err != nil {
		return fmt.Errorf("gorm: delete seat %d: %w", id, err)
	}
	return nil
}

func (r *GormSeatRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Seat{}).Error; err != nil {
		return fmt.Errorf("gorm: delete seats for room %d: %w", roomID, err)
	}
	return nil
}
