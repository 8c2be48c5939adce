package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-core/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return &RedisClient{
		client: rdb,
		ttl:    ttl,
		log:    log,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func lowStockKey(sellerID uuid.UUID) string {
	return fmt.Sprintf("lowstock:%s", sellerID)
}

// Get возвращает закэшированный отчёт о низких остатках продавца.
// Промах и ошибка Redis неразличимы для вызывающего: и то и другое — пересчёт из БД.
func (r *RedisClient) Get(ctx context.Context, sellerID uuid.UUID) ([]service.LowStockItem, bool) {
	data, err := r.client.Get(ctx, lowStockKey(sellerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("redis get failed", zap.Error(err))
		}
		return nil, false
	}
	var items []service.LowStockItem
	if err := json.Unmarshal(data, &items); err != nil {
		r.log.Warn("redis cache corrupted, dropping key", zap.Error(err))
		r.client.Del(ctx, lowStockKey(sellerID))
		return nil, false
	}
	return items, true
}

func (r *RedisClient) Set(ctx context.Context, sellerID uuid.UUID, items []service.LowStockItem) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, lowStockKey(sellerID), data, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", zap.Error(err))
	}
}

func (r *RedisClient) Invalidate(ctx context.Context, sellerID uuid.UUID) {
	if err := r.client.Del(ctx, lowStockKey(sellerID)).Err(); err != nil {
		r.log.Warn("redis del failed", zap.Error(err))
	}
}
