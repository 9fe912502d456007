package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// withMiniredis swaps the package client for a miniredis-backed one for the
// duration of the test. Tests touching the global client cannot run in
// parallel with each other.
func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := client
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(prev) })
	return mr
}

func TestGetSetJSON(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	var missing cachedPost
	found, err := GetJSON(ctx, PostKey(1), &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, PostKey(1), cachedPost{ID: 1, Title: "hello"}, PostTTL))

	var got cachedPost
	found, err = GetJSON(ctx, PostKey(1), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedPost{ID: 1, Title: "hello"}, got)
}

func TestAside(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	fetches := 0
	load := func(dest *cachedPost) error {
		return Aside(ctx, PostKey(2), dest, time.Minute, func() error {
			fetches++
			dest.ID = 2
			dest.Title = "from db"
			return nil
		})
	}

	var first cachedPost
	require.NoError(t, load(&first))
	assert.Equal(t, "from db", first.Title)

	// second read is served from the cache
	var second cachedPost
	require.NoError(t, load(&second))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetches)
}

func TestInvalidatePost(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey(3), cachedPost{ID: 3}, PostTTL))
	require.NoError(t, SetJSON(ctx, CommentsKey(3), []uint{1, 2}, ListTTL))

	InvalidatePost(ctx, 3)

	var got cachedPost
	found, err := GetJSON(ctx, PostKey(3), &got)
	require.NoError(t, err)
	assert.False(t, found)
	var ids []uint
	found, err = GetJSON(ctx, CommentsKey(3), &ids)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClaimIdempotencyKey(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	assert.True(t, ClaimIdempotencyKey(ctx, "abc"))
	assert.False(t, ClaimIdempotencyKey(ctx, "abc"), "second claim within the TTL is rejected")
	assert.True(t, ClaimIdempotencyKey(ctx, "other"))

	// claims expire with the TTL
	mr.FastForward(IdempotencyTTL + time.Second)
	assert.True(t, ClaimIdempotencyKey(ctx, "abc"))
}

func TestClaimIdempotencyKey_NoRedisFailsOpen(t *testing.T) {
	prev := client
	SetClient(nil)
	t.Cleanup(func() { SetClient(prev) })

	assert.True(t, ClaimIdempotencyKey(context.Background(), "abc"))
	assert.True(t, ClaimIdempotencyKey(context.Background(), "abc"))
}
