package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func InitRedis(addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

func menuKey(id string) string {
	return fmt.Sprintf("menu:%s", id)
}

func GetMenuItem(ctx context.Context, rdb *redis.Client, id string) ([]byte, error) {
	return rdb.Get(ctx, menuKey(id)).Bytes()
}

func SetMenuItem(ctx context.Context, rdb *redis.Client, id string, item interface{}, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, menuKey(id), data, ttl).Err()
}

func DeleteMenuItem(ctx context.Context, rdb *redis.Client, id string) error {
	return rdb.Del(ctx, menuKey(id)).Err()
}
