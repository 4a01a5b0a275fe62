package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ludobackend/internal/gamecache"
	httphandler "ludobackend/internal/handler/http"
	wshandler "ludobackend/internal/handler/websocket"
	"ludobackend/internal/hub"
	gormpersistence "ludobackend/internal/infra/persistence/gorm"
	redisstate "ludobackend/internal/infra/state/redis"
	"ludobackend/internal/middleware"
	"ludobackend/internal/service"
	"ludobackend/internal/tasks"
	"ludobackend/internal/worker"
)

// App wires every component the server needs into one object, following
// the teacher's single-struct dependency graph rather than a DI framework.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	WorkerSrv   *worker.Server
	Hub         *hub.Hub
	HTTPServer  *http.Server
	Rooms       *service.RoomCoordinator

	cache          *gamecache.Cache
	roomRepo       *gormpersistence.GormRoomRepository
	redisClientOpt asynq.RedisClientOpt
	hasRedis       bool
	stateRepo      *redisstate.StateRepository
}

// NewApp loads config, opens every backing connection, and assembles the
// full dependency graph behind the HTTP server. A component that fails to
// initialize aborts startup rather than running degraded, except Redis,
// whose absence is an explicit, spec-sanctioned degradation.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.Info("configuration loaded")

	db, err := InitDB(cfg.MongoDBURI)
	if err != nil {
		return nil, fmt.Errorf("init durable store: %w", err)
	}
	if err := MigrateDB(db); err != nil {
		return nil, fmt.Errorf("migrate durable store: %w", err)
	}
	log.Info("durable store ready")

	redisClient, err := InitRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init shared cache: %w", err)
	}
	hasRedis := redisClient != nil
	var stateRepo *redisstate.StateRepository
	var redisClientOpt asynq.RedisClientOpt
	var asynqClient *asynq.Client
	var workerSrv *worker.Server
	if hasRedis {
		stateRepo = redisstate.NewStateRepository(redisClient, cfg.RedisKeyPrefix)
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL for worker: %w", err)
		}
		redisClientOpt = asynq.RedisClientOpt{Addr: opt.Addr, Password: opt.Password, DB: opt.DB}
		asynqClient = asynq.NewClient(redisClientOpt)
		workerSrv = worker.NewServer(redisClientOpt)
		log.Info("shared cache and background worker ready")
	} else {
		log.Warn("running without shared cache; rate limiting and background compaction are disabled")
	}

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	seatRepo := gormpersistence.NewGormSeatRepository(db)
	teamRepo := gormpersistence.NewGormTeamRepository(db)
	eventRepo := gormpersistence.NewGormGameEventRepository(db)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	cache := gamecache.New()
	rooms := service.NewRoomCoordinator(cache, roomRepo, seatRepo, teamRepo, eventRepo, stateRepo, service.RoomCoordinatorConfig{
		EngagementEnabled:   cfg.EngagementDiceEnabled,
		TauntEnabled:        cfg.TauntSystemEnabled,
		TauntCooldown:       cfg.TauntCooldown,
		TauntLimitPerMin:    cfg.TauntLimitPerMin,
		TauntAutoBurstLimit: cfg.TauntAutoBurstLimit,
		GameStateCacheTTL:   cfg.GameStateCacheTTL,
		GameMoveLogTTL:      cfg.GameMoveLogTTL,
		GameMoveLogMaxItems: cfg.GameMoveLogMaxItems,
	})

	h := hub.NewHub()

	authHandler := httphandler.NewAuthHandler(authService)
	roomHandler := httphandler.NewRoomHandler(rooms, h)
	wsHandler := wshandler.NewHandler(h, rooms)

	if hasRedis {
		compactionHandler := worker.NewEventLogCompactionHandler(eventRepo, cfg.GameMoveLogTTL)
		workerSrv.RegisterEventLogCompaction(compactionHandler)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSOrigins))
	if hasRedis {
		router.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	router.GET("/health", func(c *gin.Context) {
		dbState := "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbState = "down"
		}
		cacheConnected := false
		if hasRedis {
			cacheConnected = redisClient.Ping(c.Request.Context()).Err() == nil
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"dbState": dbState, "cacheConnected": cacheConnected}})
	})
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	authRoutes := router.Group("/auth")
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)

	authMiddleware := middleware.Auth(authService)

	roomRoutes := router.Group("/rooms", authMiddleware)
	roomRoutes.POST("", roomHandler.CreateRoom)
	roomRoutes.GET("", roomHandler.ListPublicRooms)
	roomRoutes.GET("/:id", roomHandler.GetRoom)
	roomRoutes.POST("/join", roomHandler.JoinRoom)
	roomRoutes.POST("/:id/join", roomHandler.JoinRoomByID)
	roomRoutes.DELETE("/:id", roomHandler.LeaveRoom)
	roomRoutes.POST("/:id/leave", roomHandler.LeaveRoom)
	roomRoutes.PATCH("/:id/ready", roomHandler.SetReady)
	roomRoutes.PATCH("/:id/slot", roomHandler.SetSlot)
	roomRoutes.PATCH("/:id/team-names", roomHandler.SetTeamNames)
	roomRoutes.POST("/:id/start", roomHandler.StartGame)
	roomRoutes.POST("/:id/dice", roomHandler.RollDice)
	roomRoutes.POST("/:id/move", roomHandler.MakeMove)
	roomRoutes.POST("/:id/next-turn", roomHandler.AdvanceTurn)
	roomRoutes.GET("/:id/events", roomHandler.ListEvents)

	wsRoutes := router.Group("/ws", authMiddleware)
	wsRoutes.GET("/room/:roomId", wsHandler.HandleConnection)

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		WorkerSrv:      workerSrv,
		Hub:            h,
		HTTPServer:     httpServer,
		Rooms:          rooms,
		cache:          cache,
		roomRepo:       roomRepo,
		redisClientOpt: redisClientOpt,
		hasRedis:       hasRedis,
		stateRepo:      stateRepo,
	}, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if len(allowed) == 0 || allowed[origin] {
			if origin != "" {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Start launches every background routine and begins serving HTTP. Callers
// invoke Shutdown to reverse this in the mirrored order.
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("hub dispatch loop started")

	if a.hasRedis {
		go a.WorkerSrv.Start()
		a.Log.Info("worker server started")
		a.registerPeriodicTasks()
	}

	go a.runFlushLoop()
	a.Log.Info("game state flush loop started")

	go func() {
		a.Log.Infof("http server listening on %s", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.WithError(err).Fatal("http server failed")
		}
	}()
}

// runFlushLoop periodically writes every dirty cached room back to the
// durable store, per §4.5's background timer requirement.
func (a *App) runFlushLoop() {
	ticker := time.NewTicker(a.Config.GameStateFlushInterval)
	defer ticker.Stop()
	for range ticker.C {
		a.cache.FlushDirty(context.Background(), a.roomRepo.Save)
	}
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})
	task := asynq.NewTask(tasks.TypeEventLogCompaction, nil)
	entryID, err := scheduler.Register("@every 10m", task, asynq.Queue("low"))
	if err != nil {
		a.Log.WithError(err).Error("could not register event log compaction task")
	} else {
		a.Log.WithField("entry_id", entryID).Info("event log compaction task registered")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			a.Log.WithError(err).Warn("asynq scheduler stopped")
		}
	}()
}

// Shutdown tears the application down in reverse dependency order, flushing
// every dirty room synchronously before anything else closes.
func (a *App) Shutdown() {
	a.Log.Info("shutting down")

	a.cache.FlushDirty(context.Background(), a.roomRepo.Save)

	a.Hub.StopAllSubscriptions()

	if a.hasRedis {
		a.WorkerSrv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Log.WithError(err).Error("error shutting down http server")
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.WithError(err).Error("error closing asynq client")
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.WithError(err).Error("error closing redis connection")
		}
	}

	a.Log.Info("shutdown complete")
}

// LoggerMiddleware logs every request's outcome at a level keyed to its
// status code, matching the teacher's structured-access-log convention.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request handled")
		case c.Writer.Status() >= 400:
			entry.Warn("request handled")
		default:
			entry.Info("request handled")
		}
	}
}
