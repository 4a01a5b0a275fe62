package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is every environment-variable-driven knob the server reads at
// startup, per §6. LoadConfig returns an error instead of calling
// logrus.Fatal directly so main controls the failure path.
type Config struct {
	Port       string
	CORSOrigins []string
	JWTSecret  string
	JWTExpiry  time.Duration

	MongoDBURI string // consumed as the Durable Store Adapter's MySQL DSN.
	RedisURL   string // optional; empty means memory-only degradation.

	GameStateFlushInterval time.Duration
	GameStateCacheTTL      time.Duration
	GameMoveLogTTL         time.Duration
	GameMoveLogMaxItems    int

	EngagementDiceEnabled bool
	TauntSystemEnabled    bool
	TauntCooldown         time.Duration
	TauntLimitPerMin      int
	TauntAutoBurstLimit   int

	AppEnv         string
	LogLevel       string
	RedisKeyPrefix string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using process environment directly")
	}

	cfg := &Config{
		Port:       envOrDefault("PORT", "8080"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		MongoDBURI: os.Getenv("MONGODB_URI"),
		RedisURL:   os.Getenv("REDIS_URL"),
		AppEnv:     envOrDefault("APP_ENV", "development"),
		LogLevel:   envOrDefault("LOG_LEVEL", "info"),
		RedisKeyPrefix: envOrDefault("REDIS_KEY_PREFIX", "ludo:"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("environment variable MONGODB_URI must be set")
	}

	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	var err error
	if cfg.JWTExpiry, err = envDurationHours("JWT_EXPIRY", 24); err != nil {
		return nil, err
	}
	if cfg.GameStateFlushInterval, err = envDurationMillis("GAME_STATE_FLUSH_INTERVAL_MS", 2000); err != nil {
		return nil, err
	}
	if cfg.GameStateCacheTTL, err = envDurationSeconds("GAME_STATE_CACHE_TTL_SECONDS", 3600); err != nil {
		return nil, err
	}
	if cfg.GameMoveLogTTL, err = envDurationSeconds("GAME_MOVE_LOG_TTL_SECONDS", 86400); err != nil {
		return nil, err
	}
	if cfg.GameMoveLogMaxItems, err = envIntOrDefault("GAME_MOVE_LOG_MAX_ITEMS", 300); err != nil {
		return nil, err
	}
	if cfg.EngagementDiceEnabled, err = envBoolOrDefault("ENGAGEMENT_DICE_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.TauntSystemEnabled, err = envBoolOrDefault("TAUNT_SYSTEM_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.TauntCooldown, err = envDurationMillis("TAUNT_COOLDOWN_MS", 5000); err != nil {
		return nil, err
	}
	if cfg.TauntLimitPerMin, err = envIntOrDefault("TAUNT_LIMIT_PER_MIN", 6); err != nil {
		return nil, err
	}
	if cfg.TauntAutoBurstLimit, err = envIntOrDefault("TAUNT_AUTO_BURST_LIMIT", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = envIntOrDefault("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDurationSeconds("RATE_LIMIT_WINDOW_SECONDS", 1); err != nil {
		return nil, err
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, falling back to info", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func envBoolOrDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return b, nil
}

func envDurationMillis(key string, defMillis int) (time.Duration, error) {
	n, err := envIntOrDefault(key, defMillis)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func envDurationSeconds(key string, defSeconds int) (time.Duration, error) {
	n, err := envIntOrDefault(key, defSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func envDurationHours(key string, defHours int) (time.Duration, error) {
	n, err := envIntOrDefault(key, defHours)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Hour, nil
}
