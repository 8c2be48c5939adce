package main

import (
	"context"
	"os"

	"marketplace-core/config"
	"marketplace-core/internal/migrate"
	"marketplace-core/pkg/database"
	"marketplace-core/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Запускает миграции отдельно от сервиса (деплой-джоба).
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	if err := migrate.MigrateCoreDB(context.Background(), db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("Миграция базы не прошла", zap.Error(err))
	}
	log.Info("Миграции применены")
}
