package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client, time.Hour), mr
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	s, err := store.Create(ctx, domain.DatasetOrders)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.False(t, s.Initialized)
	assert.Equal(t, 0, s.TotalProcessed)

	require.NoError(t, store.MarkInitialized(ctx, domain.DatasetOrders, s.Token))
	total, err := store.AddProcessed(ctx, domain.DatasetOrders, s.Token, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, total)
	total, err = store.AddProcessed(ctx, domain.DatasetOrders, s.Token, 250)
	require.NoError(t, err)
	assert.Equal(t, 750, total)

	got, err := store.Get(ctx, domain.DatasetOrders, s.Token)
	require.NoError(t, err)
	assert.True(t, got.Initialized)
	assert.Equal(t, 750, got.TotalProcessed)

	// Tokens are scoped to their dataset.
	_, err = store.Get(ctx, domain.DatasetMitras, s.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Reset(ctx, domain.DatasetOrders, s.Token))
	got, err = store.Get(ctx, domain.DatasetOrders, s.Token)
	require.NoError(t, err)
	assert.False(t, got.Initialized)
	assert.Equal(t, 0, got.TotalProcessed)

	_, err = store.Create(ctx, domain.DatasetOrders)
	require.NoError(t, err)
	other, err := store.Create(ctx, domain.DatasetShipments)
	require.NoError(t, err)

	n, err := store.ResetAll(ctx, domain.DatasetOrders)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, domain.DatasetOrders, s.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, domain.DatasetShipments, other.Token)
	assert.NoError(t, err)

	assert.ErrorIs(t, store.MarkInitialized(ctx, domain.DatasetOrders, "missing"), ErrNotFound)
	_, err = store.AddProcessed(ctx, domain.DatasetOrders, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Reset(ctx, domain.DatasetOrders, "missing"), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestRedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	exerciseStore(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s, err := store.Create(context.Background(), domain.DatasetMeasurements)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(context.Background(), domain.DatasetMeasurements, s.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	s, err := store.Create(ctx, domain.DatasetMeasurements)
	require.NoError(t, err)
	assert.True(t, mr.Exists(sessionKey(domain.DatasetMeasurements, s.Token)))

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(ctx, domain.DatasetMeasurements, s.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.AddProcessed(ctx, domain.DatasetMeasurements, s.Token, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(sessionKey(domain.DatasetMeasurements, s.Token)))
}

func TestRedisStore_ResetAllEmpty(t *testing.T) {
	store, _ := setupRedisStore(t)
	n, err := store.ResetAll(context.Background(), domain.DatasetPhoneMessages)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
