package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix        = "post:%d"
	PostsListKeyName     = "posts:first-page"
	CommentsKeyPrefix    = "post:%d:comments:first-page"
	IdempotencyKeyPrefix = "idem:%s"
)

const (
	PostTTL        = 30 * time.Minute
	ListTTL        = 1 * time.Minute
	IdempotencyTTL = 24 * time.Hour
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostsListKey() string {
	return PostsListKeyName
}

func CommentsKey(postID uint) string {
	return fmt.Sprintf(CommentsKeyPrefix, postID)
}

func IdempotencyKey(key string) string {
	return fmt.Sprintf(IdempotencyKeyPrefix, key)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, CommentsKey(postID))
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey())
}

// ClaimIdempotencyKey attempts to claim key for a single use within
// IdempotencyTTL. Returns true when this caller is the first claimant.
// When Redis is unavailable the claim trivially succeeds; replay
// protection is best-effort.
func ClaimIdempotencyKey(ctx context.Context, key string) bool {
	if client == nil {
		return true
	}
	ok, err := client.SetNX(ctx, IdempotencyKey(key), 1, IdempotencyTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// ReleaseIdempotencyKey frees a claimed key after a failed write so the
// client's retry with the same key is not mistaken for a replay.
func ReleaseIdempotencyKey(ctx context.Context, key string) {
	Invalidate(ctx, IdempotencyKey(key))
}
