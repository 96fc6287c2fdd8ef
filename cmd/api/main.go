package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/advisory"
	"github.com/aeromx/backend/internal/api/handlers"
	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/cache"
	"github.com/aeromx/backend/internal/history"
	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/middleware/ratelimit"
	"github.com/aeromx/backend/internal/middleware/security"
	"github.com/aeromx/backend/internal/middleware/validation"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/internal/storage/sqlite"
	"github.com/aeromx/backend/pkg/config"
	appLogger "github.com/aeromx/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Maintenance Advisory API Server")

	metrics.Init()

	var store state.Store
	var replyCache *cache.ReplyCache

	switch cfg.State.Backend {
	case "memory":
		store = state.NewMemoryStore()
		appLogger.Info("Using in-memory state store")
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := rdb.Ping(pingCtx).Result(); err != nil {
			cancel()
			appLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		cancel()
		defer rdb.Close()

		appLogger.Info("Redis client initialized",
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
		)

		store = state.NewRedisStore(rdb, cfg.State.KeyPrefix)
		if cfg.Advisory.CacheEnabled {
			replyCache = cache.NewReplyCache(rdb, cfg.Advisory.CacheTTL())
		}
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	events := bus.New(appLogger.Log)
	recorder := history.NewRecorder(store, events)
	advisoryService := advisory.NewService(store, events, recorder, sqliteClient, replyCache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Advisory.MaxQueryChars,
		Logger:         appLogger.Log,
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.Log,
	})
	defer limiter.Stop()
	app.Use("/api/v1", limiter.Middleware())

	advisoryHandler := handlers.NewAdvisoryHandler(advisoryService, events, sqliteClient)
	sessionHandler := handlers.NewSessionHandler(advisoryService, events, cfg.Advisory.ReplyDelay())
	stateHandler := handlers.NewStateHandler(store, events)

	api := app.Group("/api/v1")

	api.Post("/advisory/query", advisoryHandler.HandleQuery)
	api.Post("/advisory/open", advisoryHandler.OpenSession)
	api.Get("/advisory/history", advisoryHandler.GetHistory)
	api.Get("/advisory/alerts", advisoryHandler.GetAlerts)

	api.Use("/advisory/session", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/advisory/session", websocket.New(sessionHandler.HandleConnection))

	api.Get("/state/manuals", stateHandler.GetManuals)
	api.Put("/state/manuals", stateHandler.PutManuals)
	api.Get("/state/draft", stateHandler.GetDraft)
	api.Put("/state/draft", stateHandler.PutDraft)
	api.Get("/state/aircraft", stateHandler.GetAircraft)
	api.Put("/state/aircraft", stateHandler.PutAircraft)
	api.Get("/state/assessments", stateHandler.GetAssessments)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
