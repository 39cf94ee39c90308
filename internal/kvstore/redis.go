package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisKeyPrefix      = "recovr:collection:"
	defaultMaxTxRetries = 10
)

// RedisStore keeps each collection as a string key. Update uses
// WATCH/MULTI/EXEC: if any watched collection changes before EXEC the
// whole callback is re-run against fresh data.
type RedisStore struct {
	rdb        *redis.Client
	maxRetries int
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, maxRetries: defaultMaxTxRetries}
}

func (s *RedisStore) key(name string) string { return redisKeyPrefix + name }

func (s *RedisStore) ReadCollection(ctx context.Context, name string) ([]byte, error) {
	return readRedisKey(ctx, s.rdb, s.key(name))
}

func (s *RedisStore) WriteCollection(ctx context.Context, name string, data []byte) error {
	return s.rdb.Set(ctx, s.key(name), data, 0).Err()
}

func (s *RedisStore) Update(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	keys := make([]string, len(collections))
	for i, c := range collections {
		keys[i] = s.key(c)
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			txn := newStagedTxn(collections, func(name string) ([]byte, error) {
				return readRedisKey(ctx, tx, s.key(name))
			})
			if err := fn(txn); err != nil {
				return err
			}
			if len(txn.writes) == 0 {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for name, data := range txn.writes {
					pipe.Set(ctx, s.key(name), data, 0)
				}
				return nil
			})
			return err
		}, keys...)

		if errors.Is(err, redis.TxFailedErr) {
			log.Debug().Int("attempt", attempt).Strs("collections", collections).Msg("kvstore: watched collection changed, retrying")
			continue
		}
		return err
	}
	return ErrConflict
}

// View loads every listed collection with a single MGET, which Redis
// executes atomically.
func (s *RedisStore) View(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	if len(collections) == 0 {
		return fn(newViewTxn(nil, nil))
	}
	keys := make([]string, len(collections))
	for i, c := range collections {
		keys[i] = s.key(c)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	snapshot := make(map[string][]byte, len(collections))
	for i, c := range collections {
		if v, ok := vals[i].(string); ok {
			snapshot[c] = []byte(v)
		}
	}
	return fn(newViewTxn(collections, func(name string) ([]byte, error) {
		return cloneBytes(snapshot[name]), nil
	}))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRedisKey(ctx context.Context, c stringGetter, key string) ([]byte, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}
