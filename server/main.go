package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviebooking/api/routes"
	"moviebooking/internal/app"
	"moviebooking/internal/jobs"
	"moviebooking/internal/notifications"
	"moviebooking/internal/shared/config"
	"moviebooking/pkg/logger"
	"moviebooking/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const notificationWorkers = 3

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	backend, err := app.Open(cfg)
	if err != nil {
		appLogger.Error("failed to open storage", slog.String("driver", cfg.Database.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer backend.Close()

	publisher, err := notifications.NewPublisher(cfg.Events)
	if err != nil {
		appLogger.Error("Failed to initialize event publisher, events will be dropped", slog.Any("error", err))
		publisher = notifications.NoopPublisher{}
	}
	defer publisher.Close()

	services := app.NewServices(cfg, backend, publisher)

	notificationService := notifications.NewService(notifications.NewMailer(cfg.Email))
	services.Auth.SetResetNotifier(notificationService)

	notificationCtx, notificationCancel := context.WithCancel(context.Background())
	defer notificationCancel()

	consumer, err := notifications.NewConsumer(cfg.Events, notificationService)
	switch {
	case err != nil:
		appLogger.Error("Failed to initialize notification consumer", slog.Any("error", err))
		appLogger.Info("Continuing without notification consumer - booking emails will not be sent")
	case consumer != nil:
		if err := consumer.Start(notificationCtx, notificationWorkers); err != nil {
			appLogger.Error("Failed to start notification consumer", slog.Any("error", err))
		} else {
			appLogger.Info("Notification consumer started", slog.String("broker", cfg.Events.Broker))
			defer func() {
				appLogger.Info("Stopping notification consumer...")
				notificationCancel()
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping notification consumer", slog.Any("error", err))
				}
			}()
		}
	}

	if cfg.Jobs.Enabled {
		scheduler, err := jobs.NewScheduler(cfg.Jobs, services.Bookings, services.Analytics)
		if err != nil {
			appLogger.Error("Failed to initialize job scheduler", slog.Any("error", err))
		} else {
			scheduler.Start()
			defer func() {
				if err := scheduler.Shutdown(); err != nil {
					appLogger.Error("Error stopping job scheduler", slog.Any("error", err))
				}
			}()
		}
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && backend.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(backend.Redis, cfg.RateLimit)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, backend, services, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("storage", cfg.Database.Driver),
			slog.Bool("redis_cache", backend.Redis != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, backend *app.Backend, services *app.Services, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	routes.NewRouter(cfg, backend, services).SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
