package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Labels []int    `json:"labels"`
	Score  *float64 `json:"score"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "rfm:cluster", ttl), mr
}

func TestSetGet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	score := 0.61
	require.NoError(t, c.Set(ctx, "abc", entry{Labels: []int{0, 1, 1}, Score: &score}))
	assert.True(t, mr.Exists("rfm:cluster:abc"))

	var got entry
	hit, err := c.Get(ctx, "abc", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{0, 1, 1}, got.Labels)
	assert.Equal(t, 0.61, *got.Score)

	require.NoError(t, c.Delete(ctx, "abc"))
	hit, err = c.Get(ctx, "abc", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{}))
	mr.FastForward(2 * time.Minute)

	hit, err := c.Get(ctx, "k", &entry{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetCorruptValue(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set("rfm:cluster:bad", "{not json"))

	_, err := c.Get(context.Background(), "bad", &entry{})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	a := Key([]byte("rfm.csv"), []byte("k=4"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key([]byte("rfm.csv"), []byte("k=4")))
	assert.NotEqual(t, a, Key([]byte("rfm.csvk=4")))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewClient(ctx, config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())

	client2, err := NewClient(ctx, config.RedisConfig{Addr: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	client2.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(ctx, config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
