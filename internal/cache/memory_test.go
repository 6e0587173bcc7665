package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := m.Get(ctx, "gas:ethereum")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "gas:ethereum", []byte("42"), time.Minute))

	got, err := m.Get(ctx, "gas:ethereum")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "gas:ethereum")
	assert.ErrorIs(t, err, ErrCacheExpired)

	_, err = m.Get(ctx, "gas:ethereum")
	assert.ErrorIs(t, err, ErrCacheMiss, "expired entries are evicted on read")
}

func TestMemory_CleanupExpired(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("b"), time.Hour))

	now = now.Add(time.Minute)
	n, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = m.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestJSON_RoundTrip(t *testing.T) {
	j := NewJSON(NewMemory())
	ctx := context.Background()

	type pool struct {
		Project string  `json:"project"`
		APY     float64 `json:"apy"`
	}

	require.NoError(t, j.Set(ctx, "pools", []pool{{Project: "pendle", APY: 12.5}}, time.Minute))

	var got []pool
	require.NoError(t, j.Get(ctx, "pools", &got))
	assert.Equal(t, []pool{{Project: "pendle", APY: 12.5}}, got)

	var missing []pool
	assert.ErrorIs(t, j.Get(ctx, "nope", &missing), ErrCacheMiss)
}

func TestJSON_DecodeError(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(context.Background(), "bad", []byte("{"), time.Minute))

	var v map[string]interface{}
	err := NewJSON(m).Get(context.Background(), "bad", &v)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
