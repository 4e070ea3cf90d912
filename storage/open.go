package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"activity-events/config"
	"activity-events/domain"
)

// Store is a view store backend with its administrative operations.
type Store interface {
	domain.RowStore
	EnsureTables(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*TableStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// Open builds the backend selected by cfg.
func Open(cfg config.Storage) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendRedis:
		opts, err := config.RedisOptions(cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("redis config: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), cfg.RedisPrefix), nil
	default:
		return NewTableStore(cfg.ConnectionString, cfg.TableNames())
	}
}
