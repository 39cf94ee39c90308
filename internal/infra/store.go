package infra

import (
	"context"
	"fmt"

	"recovr/internal/config"
	"recovr/internal/kvstore"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OpenStore builds the collection store selected by STORE_DRIVER. rdb is
// only used by the redis driver and may be nil otherwise.
func OpenStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (kvstore.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return kvstore.NewMemoryStore(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("store driver redis: no redis client")
		}
		return kvstore.NewRedisStore(rdb), nil
	case "postgres":
		db, err := NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := kvstore.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate kv_collections: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
