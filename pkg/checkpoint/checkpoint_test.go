package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStoreFromClient(rdb, RedisConfig{KeyPrefix: "test:"}, logger),
	}
}

func TestStore_Offsets(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			offset, err := store.Offset(ctx, "run-1", "GOA")
			require.NoError(t, err)
			assert.Equal(t, 0, offset)

			require.NoError(t, store.Save(ctx, "run-1", "GOA", 200))
			require.NoError(t, store.Save(ctx, "run-1", "GOA", 400))
			require.NoError(t, store.Save(ctx, "run-1", "KERALA", 100))

			offset, err = store.Offset(ctx, "run-1", "GOA")
			require.NoError(t, err)
			assert.Equal(t, 400, offset)

			offset, err = store.Offset(ctx, "run-2", "GOA")
			require.NoError(t, err)
			assert.Equal(t, 0, offset)

			require.NoError(t, store.Clear(ctx, "run-1"))
			offset, err = store.Offset(ctx, "run-1", "KERALA")
			require.NoError(t, err)
			assert.Equal(t, 0, offset)
		})
	}
}

func TestStore_Locks(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			lock, err := store.Lock(ctx, "GOA", time.Minute)
			require.NoError(t, err)

			_, err = store.Lock(ctx, "GOA", time.Minute)
			assert.ErrorIs(t, err, ErrLockNotAcquired)

			other, err := store.Lock(ctx, "KERALA", time.Minute)
			require.NoError(t, err)
			require.NoError(t, other.Release(ctx))

			require.NoError(t, lock.Extend(ctx, 2*time.Minute))
			require.NoError(t, lock.Release(ctx))
			assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

			again, err := store.Lock(ctx, "GOA", time.Minute)
			require.NoError(t, err)
			require.NoError(t, again.Release(ctx))
		})
	}
}

func TestMemoryStore_ExpiredLockCanBeTaken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale, err := store.Lock(ctx, "GOA", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := store.Lock(ctx, "GOA", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.Release(ctx), ErrLockNotHeld)
	require.NoError(t, fresh.Release(ctx))
}
