package session

import (
	"context"
	"testing"
	"time"

	"atelier/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb)
}

func TestStore_SelectAndActiveTenant(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	_, ok := store.ActiveTenant(ctx, 7)
	assert.False(t, ok)

	require.NoError(t, store.Select(ctx, 7, 42))

	id, ok := store.ActiveTenant(ctx, 7)
	require.True(t, ok)
	assert.EqualValues(t, 42, id)

	store.Clear(ctx, 7)
	_, ok = store.ActiveTenant(ctx, 7)
	assert.False(t, ok)
}

func TestStore_WorksWithoutRedis(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Select(ctx, 1, 10))
	id, ok := store.ActiveTenant(ctx, 1)
	require.True(t, ok)
	assert.EqualValues(t, 10, id)
}

func TestStore_Subscribe(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	ch, cancel := store.Subscribe(3)
	defer cancel()

	require.NoError(t, store.Select(ctx, 3, 11))

	select {
	case got := <-ch:
		assert.EqualValues(t, 11, got)
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}

	// A slow subscriber sees only the latest selection.
	require.NoError(t, store.Select(ctx, 3, 12))
	require.NoError(t, store.Select(ctx, 3, 13))
	select {
	case got := <-ch:
		assert.EqualValues(t, 13, got)
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}

	// Another user's selection never crosses over.
	require.NoError(t, store.Select(ctx, 4, 99))
	select {
	case got := <-ch:
		t.Fatalf("unexpected notification %d", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_Resolve(t *testing.T) {
	ctx := context.Background()

	tenants := []models.Tenant{
		{ID: 1, Code: "FIRST222"},
		{ID: 2, Code: "DEFLT222", IsDefault: true},
		{ID: 3, Code: "THIRD222"},
	}

	t.Run("Stored selection wins", func(t *testing.T) {
		store := newRedisStore(t)
		require.NoError(t, store.Select(ctx, 5, 3))

		got := store.Resolve(ctx, 5, tenants)
		require.NotNil(t, got)
		assert.EqualValues(t, 3, got.ID)
	})

	t.Run("Stale selection falls back to default and is cleared", func(t *testing.T) {
		store := newRedisStore(t)
		require.NoError(t, store.Select(ctx, 5, 999))

		got := store.Resolve(ctx, 5, tenants)
		require.NotNil(t, got)
		assert.EqualValues(t, 2, got.ID)

		_, ok := store.ActiveTenant(ctx, 5)
		assert.False(t, ok)
	})

	t.Run("No stored selection picks default flag", func(t *testing.T) {
		store := newRedisStore(t)
		got := store.Resolve(ctx, 5, tenants)
		require.NotNil(t, got)
		assert.EqualValues(t, 2, got.ID)
	})

	t.Run("No default falls back to first", func(t *testing.T) {
		store := newRedisStore(t)
		noDefault := []models.Tenant{{ID: 8}, {ID: 9}}
		got := store.Resolve(ctx, 5, noDefault)
		require.NotNil(t, got)
		assert.EqualValues(t, 8, got.ID)
	})

	t.Run("Empty list resolves to none", func(t *testing.T) {
		store := newRedisStore(t)
		assert.Nil(t, store.Resolve(ctx, 5, nil))
	})
}
