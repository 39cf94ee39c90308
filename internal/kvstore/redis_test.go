package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_MissingCollectionReadsNil(t *testing.T) {
	s, _ := newTestRedisStore(t)
	data, err := s.ReadCollection(context.Background(), "clients")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStore_UpdateCommitsBothCollections(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	err := s.Update(ctx, []string{"clients", "payments"}, func(txn Txn) error {
		if err := txn.WriteCollection("clients", []byte(`["c"]`)); err != nil {
			return err
		}
		return txn.WriteCollection("payments", []byte(`["p"]`))
	})
	require.NoError(t, err)

	c, err := mr.Get(redisKeyPrefix + "clients")
	require.NoError(t, err)
	assert.Equal(t, `["c"]`, c)
	p, err := mr.Get(redisKeyPrefix + "payments")
	require.NoError(t, err)
	assert.Equal(t, `["p"]`, p)
}

func TestRedisStore_RetriesWhenWatchedKeyChanges(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteCollection(ctx, "clients", []byte(`["v1"]`)))

	calls := 0
	err := s.Update(ctx, []string{"clients"}, func(txn Txn) error {
		calls++
		got, err := txn.ReadCollection("clients")
		if err != nil {
			return err
		}
		if calls == 1 {
			// another writer sneaks in between WATCH and EXEC
			require.NoError(t, mr.Set(redisKeyPrefix+"clients", `["v2"]`))
			assert.Equal(t, `["v1"]`, string(got))
		} else {
			assert.Equal(t, `["v2"]`, string(got))
		}
		return txn.WriteCollection("clients", append(got[:len(got)-1:len(got)-1], []byte(`,"mine"]`)...))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	final, _ := s.ReadCollection(ctx, "clients")
	assert.Equal(t, `["v2","mine"]`, string(final))
}

func TestRedisStore_ConflictAfterRetriesExhausted(t *testing.T) {
	s, mr := newTestRedisStore(t)
	s.maxRetries = 3
	ctx := context.Background()

	n := 0
	err := s.Update(ctx, []string{"clients"}, func(txn Txn) error {
		n++
		require.NoError(t, mr.Set(redisKeyPrefix+"clients", `["other"]`))
		return txn.WriteCollection("clients", []byte(`["mine"]`))
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, n)
}

func TestRedisStore_ViewReadsAllCollections(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(redisKeyPrefix+"clients", `["c"]`))

	err := s.View(ctx, []string{"clients", "payments"}, func(txn Txn) error {
		c, err := txn.ReadCollection("clients")
		require.NoError(t, err)
		assert.Equal(t, `["c"]`, string(c))
		p, err := txn.ReadCollection("payments")
		require.NoError(t, err)
		assert.Nil(t, p)

		_, err = txn.ReadCollection("users")
		assert.ErrorIs(t, err, ErrUndeclared)
		return txn.WriteCollection("clients", []byte(`[]`))
	})
	assert.ErrorIs(t, err, ErrReadOnly)

	c, err := mr.Get(redisKeyPrefix + "clients")
	require.NoError(t, err)
	assert.Equal(t, `["c"]`, c)
}
