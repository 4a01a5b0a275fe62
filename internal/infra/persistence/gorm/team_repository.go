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

// GormTeamRepository is the TeamRepository implementation over GORM/MySQL.
type GormTeamRepository struct {
	db *gorm.DB
}

func NewGormTeamRepository(db *gorm.DB) *GormTeamRepository {
	if db == nil {
		panic("database connection cannot be nil for GormTeamRepository")
	}
	return &GormTeamRepository{db: db}
}

func (r *GormTeamRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.Team, error) {
	var teams []domain.Team
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("team_index ASC").Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list teams for room %d: %w", roomID, err)
	}
	return teams, nil
}

func (r *GormTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	err := r.db.WithContext(ctx).Save(team).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save team (room: %d, index: %d): %w", team.RoomID, team.TeamIndex, err)
	}
	return nil
}

func (r *GormTeamRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.Team{}).Error; err != nil {
		return fmt.Errorf("gorm: delete teams for room %d: %w", roomID, err)
	}
	return nil
}
