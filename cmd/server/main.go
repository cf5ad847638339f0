package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readinglist/backend/internal/config"
	"readinglist/backend/internal/db"
	"readinglist/backend/internal/handler"
	"readinglist/backend/internal/logging"
	"readinglist/backend/internal/repository"
	"readinglist/backend/internal/router"
	"readinglist/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, db.MigrationFS(cfg.MigrationsDir)); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	registry := service.NewRegistry(repository.NewBlobRepository(database), service.Options{
		Location:   cfg.Location,
		UndoWindow: cfg.UndoWindow,
		Logger:     logger,
	})

	engine := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Library:  handler.NewLibraryHandler(registry, cfg.Location),
		Session:  handler.NewSessionHandler(registry),
		Progress: handler.NewProgressHandler(registry),
	}, cfg.CORSOrigins, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("backend listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server", zap.Error(err))
	}
}
