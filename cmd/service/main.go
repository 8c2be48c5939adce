package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-core/config"
	"marketplace-core/internal/cache"
	"marketplace-core/internal/catalog"
	"marketplace-core/internal/identity"
	"marketplace-core/internal/migrate"
	"marketplace-core/internal/producer"
	"marketplace-core/internal/repository"
	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/router"
	"marketplace-core/pkg/database"
	"marketplace-core/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

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

	ctx := context.Background()
	if err := migrate.MigrateCoreDB(ctx, db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("Миграция базы не прошла", zap.Error(err))
	}

	repos := repository.New(db)

	var lowStockCache service.LowStockCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		lowStockCache = rc
	}

	var events service.EventBus
	if cfg.KafkaEnabled {
		ep := producer.NewEventProducer(cfg.KafkaBrokers)
		defer ep.Close()
		events = ep
	}

	catalogClient := catalog.NewClient(cfg.CatalogAddr, log)
	idClient := identity.NewClient(cfg.IdentityAddr, log)

	svc := router.Services{
		Carts:     service.NewCartService(repos, catalogClient, log),
		Checkout:  service.NewCheckoutService(repos, catalogClient, events, lowStockCache, log),
		Orders:    service.NewOrderService(repos, events, lowStockCache, log),
		Inventory: service.NewInventoryService(repos, events, lowStockCache, log),
	}

	r := router.Router(svc, idClient, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
