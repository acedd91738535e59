package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"inchat/internal/config"
	"inchat/internal/gateway"
	"inchat/internal/handler"
	"inchat/internal/middleware"
	"inchat/internal/repository"
	"inchat/internal/service"
	"inchat/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Redis опционален: без него работаем в одиночном режиме без моста
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Warn("Redis unavailable, degrading to single-process mode", "error", err)
			rdb.Close()
			rdb = nil
		} else {
			appLogger.Info("Redis connection established", "addr", cfg.Redis.Addr)
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Инициализация репозиториев и сервисов
	repos := repository.NewRepositories(dbPool, rdb, appLogger)
	services := service.NewServices(repos, cfg, appLogger)

	// Магистраль рассылки: локальный hub, при наличии Redis - с мостом
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()

	hub := gateway.NewHub(appLogger)
	var backbone gateway.Backbone = hub
	if rdb != nil {
		redisBackbone := gateway.NewRedisBackbone(hub, rdb, appLogger)
		go redisBackbone.Run(bridgeCtx)
		backbone = redisBackbone
		appLogger.Info("Multi-process fan-out enabled")
	} else {
		appLogger.Info("Single-process fan-out mode")
	}

	// Middleware и handlers
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, cfg.JWT.CookieName, appLogger)
	var rateLimitMiddleware *middleware.RateLimitMiddleware
	if services.RateLimit != nil {
		rateLimitMiddleware = middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)
	}

	handlers := handler.NewHandlers(services, backbone, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stopBridge()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			// Лимитер включается только при настроенном Redis
			if rateLimitMiddleware != nil {
				limited := rateLimitMiddleware.Limit(10, time.Minute)
				auth.POST("/signup", limited, handlers.Auth.Signup)
				auth.POST("/login", limited, handlers.Auth.Login)
			} else {
				auth.POST("/signup", handlers.Auth.Signup)
				auth.POST("/login", handlers.Auth.Login)
			}
			auth.POST("/logout", handlers.Auth.Logout)
			auth.GET("/me", handlers.Auth.Me)
		}

		protected := api.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.GET("/users", handlers.User.List)
			protected.GET("/chats", handlers.Chat.List)
			protected.POST("/chats", handlers.Chat.Create)
			protected.GET("/chats/:chatId/messages", handlers.Chat.GetMessages)
			protected.POST("/chats/:chatId/messages", handlers.Chat.CreateMessage)
		}
	}

	// WebSocket шлюз: рукопожатие делает сам handler, до него middleware
	// авторизации не нужен
	router.GET("/ws", handlers.WebSocket.HandleWS)

	return router
}
