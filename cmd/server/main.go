package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/event"
	httpAdapter "github.com/khoahotran/profile-editor/adapters/http"
	"github.com/khoahotran/profile-editor/adapters/media_storage"
	"github.com/khoahotran/profile-editor/adapters/persistence"
	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/application/session"
	authUC "github.com/khoahotran/profile-editor/internal/application/usecase/auth"
	"github.com/khoahotran/profile-editor/internal/application/usecase/backup"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/auth"
	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/tracing"
)

const serviceName = "profile-editor-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Start Profile Editor API Server...", zap.String("env", cfg.App.Env))

	tp, err := tracing.NewTracerProvider(ctx, cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("Cannot init tracing", err)
	}
	defer tracing.Shutdown(context.Background(), tp, appLogger)

	// Profile store
	var store profile.Store
	var userRepo user.Repository
	switch cfg.Profile.Store {
	case config.StoreDriverMemory:
		appLogger.Warn("Using in-memory profile store, data is lost on restart")
		store = persistence.NewMemoryProfileStore()
		owner, err := persistence.NewOwner(cfg.Owner.Email, cfg.Owner.Password)
		if err != nil {
			appLogger.Fatal("Cannot create owner for memory store", err)
		}
		userRepo = persistence.NewMemoryUserRepo(owner)
	default:
		dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Postgres", err)
		}
		defer dbPool.Close()
		store = persistence.NewPostgresProfileStore(dbPool, appLogger)
		userRepo = persistence.NewPostgresUserRepo(dbPool, appLogger)

		if cfg.Redis.Addr != "" {
			redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
			if err != nil {
				appLogger.Fatal("Cannot connect Redis", err)
			}
			defer redisClient.Close()
			store = persistence.NewCachedProfileStore(store, redisClient, cfg.Redis.TTL, appLogger)
		}
	}

	// Change events
	var publisher service.EventPublisher = service.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	}

	// Image uploads
	var uploader service.Uploader
	if cfg.Cloudinary.CloudName != "" {
		uploader, err = media_storage.NewCloudinaryAdapter(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize uploader", err)
		}
	} else {
		appLogger.Warn("Cloudinary not configured, profile image upload disabled")
	}

	// Sessions
	registry := session.NewRegistry(session.Deps{
		Store:     store,
		Uploader:  uploader,
		Publisher: publisher,
		PageSize:  cfg.Profile.PageSize,
		Logger:    appLogger,
	})
	defer registry.CloseAll(context.Background())

	// Use Cases
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, registry, appLogger)
	logoutUseCase := authUC.NewLogoutUseCase(registry, appLogger)
	exportUseCase := backup.NewExportUseCase(store, uploader, appLogger)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	httpAdapter.RegisterRoutes(router, httpAdapter.RouterDeps{
		AuthHandler: httpAdapter.NewAuthHandler(loginUseCase, logoutUseCase, appLogger),
		Export:      exportUseCase,
		JWT:         jwtSvc,
		Sessions:    registry,
		Logger:      appLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}
