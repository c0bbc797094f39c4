package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bursar/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyReceiptPDF = "receipt:pdf:%s"

// Cache stores rendered receipt PDFs. Ledger snapshots never change, so an
// entry only goes away when its TTL expires.
type Cache interface {
	Get(ctx context.Context, ledgerID string) ([]byte, bool, error)
	Set(ctx context.Context, ledgerID string, pdf []byte) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient returns nil when REDIS_ADDR is not configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("receipt cache disabled: redis addr not configured")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// rendering still works without the cache
				log.Warn("receipt cache unreachable", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func NewCache(client *redis.Client, cfg config.Config) Cache {
	return NewRedisCache(client, cfg.ReceiptCacheTTL)
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *RedisCache) Get(ctx context.Context, ledgerID string) ([]byte, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, fmt.Sprintf(keyReceiptPDF, ledgerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ledgerID string, pdf []byte) error {
	if !c.Enabled() || len(pdf) == 0 {
		return nil
	}
	return c.client.Set(ctx, fmt.Sprintf(keyReceiptPDF, ledgerID), pdf, c.ttl).Err()
}
