package main

import (
	"log"

	"go.uber.org/zap"

	"readinglist/backend/internal/config"
	"readinglist/backend/internal/db"
	"readinglist/backend/internal/logging"
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

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, db.MigrationFS(cfg.MigrationsDir)); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	logger.Info("migrations applied", zap.String("db", cfg.DBPath))
}
