package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"catapi/internal/config"
	"catapi/internal/database"
	"catapi/internal/handlers"
	"catapi/internal/middleware"
	"catapi/internal/services"
	"catapi/internal/uploads"
	"catapi/internal/validation"
	"catapi/pkg/cache"
	"catapi/pkg/rabbitmq"
)

// App holds every process-wide resource. It is built once by NewApp and
// released by Shutdown.
type App struct {
	cfg   *config.Config
	fiber *fiber.App
	store *database.Store
	redis *cache.Client
	mq    *rabbitmq.Client
}

// NewApp connects the configured backends and wires the HTTP routes.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	store, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	// Token revocation is disabled without redis.
	if cfg.RedisAddr != "" {
		a.redis = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := a.redis.Ping(ctx); err != nil {
			zap.L().Warn("redis unreachable, token revocation degraded", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	} else {
		zap.L().Warn("REDIS_ADDR not set, logout and token revocation are disabled")
	}

	var publisher services.EventPublisher = services.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			zap.L().Warn("RabbitMQ unavailable, events will not be published", zap.Error(err))
		} else {
			a.mq = mq
			publisher = mq
			if err := mq.Consume(func(msg amqp.Delivery) error {
				return services.LogEvent(msg.Body)
			}); err != nil {
				zap.L().Warn("failed to start event consumer", zap.Error(err))
			}
		}
	}

	files, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}

	// --- Services ---
	v := validation.New()
	authService := services.NewAuthService(store.Users, services.NewRedisTokenStore(a.redis), v, cfg.JWTSecret, cfg.JWTExpiry)
	userService := services.NewUserService(store.Users, v, publisher)
	catService := services.NewCatService(store.Cats, store.Users, v, publisher)

	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			_ = a.Shutdown(ctx)
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	// --- Fiber ---
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes,
	})
	// Metrics wraps recover so panicking requests are counted as 500s.
	app.Use(middleware.Metrics())
	app.Use(recover.New())
	app.Use(logger.New())

	checks := map[string]handlers.Pinger{"database": store}
	if a.redis != nil {
		checks["redis"] = a.redis
	}
	handlers.NewHealthHandler(checks).RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static("/uploads", files.Dir())

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewUserHandler(userService, authService).RegisterRoutes(apiV1)
	handlers.NewCatHandler(catService, authService, files, uploads.NewLocationResolver(cfg.DefaultLng, cfg.DefaultLat)).RegisterRoutes(apiV1)

	a.fiber = app
	return a, nil
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *App) Listen() error {
	return a.fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the server and closes every backend connection.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.fiber != nil {
		if err := a.fiber.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("fiber: %w", err))
		}
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rabbitmq: %w", err))
		}
	}
	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to start app", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db_driver", cfg.DBDriver))
		if err := app.Listen(); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		log.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	log.Info("server gracefully stopped")
}
