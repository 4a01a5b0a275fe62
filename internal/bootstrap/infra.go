package bootstrap

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ludobackend/internal/domain"
)

// InitDB opens the Durable Store Adapter's GORM/MySQL connection. cfg.MongoDBURI
// is read as the MySQL DSN, per §4.11's dependency substitution.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to durable store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("obtain underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// MigrateDB brings the durable store's schema up to date with the domain
// model, including the unique/secondary indexes §6 requires.
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.Room{}, &domain.Seat{}, &domain.Team{}, &domain.GameEvent{}); err != nil {
		return fmt.Errorf("migrate durable store: %w", err)
	}
	return nil
}

// InitRedis connects the Shared Cache Adapter's client. redisURL empty means
// the system degrades to memory-only for runtime state, per §6; callers
// check for a nil return rather than treating an unset URL as an error.
func InitRedis(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		logrus.Warn("REDIS_URL not set, shared cache degraded to memory-only")
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	return client, nil
}
