package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newContentService(t *testing.T, posts *postRepoStub, reactions *reactionRepoStub, stats *statsRepoStub) *ContentService {
	t.Helper()
	return NewContentService(newTestGorm(t), posts, reactions, stats, &userRepoStub{})
}

func TestContentService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := newContentService(t, noopPostRepo(), noopReactionRepo(), &statsRepoStub{})
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{"empty title", CreatePostInput{AuthorID: 1, Content: "body"}},
		{"whitespace title", CreatePostInput{AuthorID: 1, Title: "   ", Content: "body"}},
		{"title too long", CreatePostInput{AuthorID: 1, Title: strings.Repeat("x", 301), Content: "body"}},
		{"empty content", CreatePostInput{AuthorID: 1, Title: "title"}},
		{"content too long", CreatePostInput{AuthorID: 1, Title: "title", Content: strings.Repeat("x", 50001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestContentService_CreatePost(t *testing.T) {
	t.Parallel()

	var created *models.Post
	posts := noopPostRepo()
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		created = p
		return nil
	}
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 3,
		Title:    "  Hello  ",
		Content:  "World",
		Category: "tech",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), post.ID)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.Equal(t, uint(3), created.AuthorID)
}

func TestContentService_GetPost_HiddenIsNotFound(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Status: models.StatusHidden}, nil
	}
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	_, err := svc.GetPost(context.Background(), 5, 0)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestContentService_GetPost_ViewerEnrichment(t *testing.T) {
	t.Parallel()

	reactions := noopReactionRepo()
	reactions.getFn = func(_ context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
		return &models.Reaction{UserID: userID, TargetType: targetType, TargetID: targetID, Liked: true}, nil
	}
	svc := newContentService(t, noopPostRepo(), reactions, &statsRepoStub{})

	post, err := svc.GetPost(context.Background(), 5, 9)
	require.NoError(t, err)
	require.NotNil(t, post.Viewer)
	assert.True(t, post.Viewer.Liked)

	// anonymous read carries no viewer state
	post, err = svc.GetPost(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Nil(t, post.Viewer)
}

func TestContentService_GetPost_ViewerReadOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("missing reaction row is zero state", func(t *testing.T) {
		reactions := noopReactionRepo()
		reactions.getFn = func(context.Context, uint, string, uint) (*models.Reaction, error) {
			return nil, gorm.ErrRecordNotFound
		}
		svc := newContentService(t, noopPostRepo(), reactions, &statsRepoStub{})

		post, err := svc.GetPost(context.Background(), 5, 9)
		require.NoError(t, err)
		require.NotNil(t, post.Viewer)
		assert.False(t, post.Viewer.Liked)
	})

	t.Run("failed reaction read fails the request", func(t *testing.T) {
		reactions := noopReactionRepo()
		reactions.getFn = func(context.Context, uint, string, uint) (*models.Reaction, error) {
			return nil, errors.New("connection reset")
		}
		svc := newContentService(t, noopPostRepo(), reactions, &statsRepoStub{})

		_, err := svc.GetPost(context.Background(), 5, 9)
		require.Error(t, err)
	})
}

func TestContentService_BumpViewCount_TargetTypes(t *testing.T) {
	t.Parallel()

	stats := &statsRepoStub{}
	svc := newContentService(t, noopPostRepo(), noopReactionRepo(), stats)
	ctx := context.Background()

	svc.BumpViewCount(ctx, models.TargetPost, 1)
	svc.BumpViewCount(ctx, models.TargetComment, 2)
	svc.BumpViewCount(ctx, "thread", 3)

	require.Len(t, stats.increments, 2)
	assert.Equal(t, models.TargetPost, stats.increments[0].TargetType)
	assert.Equal(t, models.StatsDelta{Views: 1}, stats.increments[0].Delta)
	assert.Equal(t, models.TargetComment, stats.increments[1].TargetType)
	assert.Equal(t, uint(2), stats.increments[1].TargetID)
}

func TestContentService_ListContent_Validation(t *testing.T) {
	t.Parallel()

	svc := newContentService(t, noopPostRepo(), noopReactionRepo(), &statsRepoStub{})
	ctx := context.Background()

	t.Run("page below one", func(t *testing.T) {
		_, err := svc.ListContent(ctx, ListContentInput{Page: 0, PageSize: 10})
		assertValidationError(t, err)
	})

	t.Run("page size above maximum", func(t *testing.T) {
		_, err := svc.ListContent(ctx, ListContentInput{Page: 1, PageSize: 101})
		assertValidationError(t, err)
	})

	t.Run("unknown sort field", func(t *testing.T) {
		_, err := svc.ListContent(ctx, ListContentInput{Page: 1, PageSize: 10, SortBy: "karma"})
		assertValidationError(t, err)
	})

	t.Run("relevance without search", func(t *testing.T) {
		_, err := svc.ListContent(ctx, ListContentInput{Page: 1, PageSize: 10, SortBy: "relevance"})
		assertValidationError(t, err)
	})
}

func TestContentService_ListContent_SearchDefaultsToRelevance(t *testing.T) {
	t.Parallel()

	var captured repository.ListParams
	posts := noopPostRepo()
	posts.listFn = func(_ context.Context, p repository.ListParams) ([]*models.Post, int64, error) {
		captured = p
		return nil, 0, nil
	}
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	_, err := svc.ListContent(context.Background(), ListContentInput{Page: 1, PageSize: 10, Search: "gophers"})
	require.NoError(t, err)
	assert.Equal(t, "relevance", captured.SortBy)
	assert.Equal(t, "gophers", captured.Search)

	_, err = svc.ListContent(context.Background(), ListContentInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "created_at", captured.SortBy)
}

func TestContentService_ListContent_ViewerEnrichment(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.listFn = func(context.Context, repository.ListParams) ([]*models.Post, int64, error) {
		return []*models.Post{{ID: 1}, {ID: 2}}, 2, nil
	}
	var batchedIDs []uint
	reactions := noopReactionRepo()
	reactions.getForTargetsFn = func(_ context.Context, _ uint, _ string, ids []uint) (map[uint]*models.Reaction, error) {
		batchedIDs = ids
		return map[uint]*models.Reaction{1: {TargetID: 1, Bookmarked: true}}, nil
	}
	svc := newContentService(t, posts, reactions, &statsRepoStub{})

	result, err := svc.ListContent(context.Background(), ListContentInput{Page: 1, PageSize: 10, ViewerID: 9})
	require.NoError(t, err)

	// one batched reaction fetch for the whole page
	assert.Equal(t, []uint{1, 2}, batchedIDs)
	require.NotNil(t, result.Posts[0].Viewer)
	assert.True(t, result.Posts[0].Viewer.Bookmarked)
	require.NotNil(t, result.Posts[1].Viewer)
	assert.False(t, result.Posts[1].Viewer.Bookmarked)
}

func TestContentService_ListContent_PageInfo(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.listFn = func(context.Context, repository.ListParams) ([]*models.Post, int64, error) {
		return nil, 45, nil
	}
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	result, err := svc.ListContent(context.Background(), ListContentInput{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(45), result.PageInfo.Total)
	assert.Equal(t, 5, result.PageInfo.TotalPages)
	assert.True(t, result.PageInfo.HasNext)
	assert.True(t, result.PageInfo.HasPrev)
}

func TestContentService_UpdatePost_OwnerOnly(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Status: models.StatusActive, AuthorID: 10}, nil
	}
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	_, err := svc.UpdatePost(context.Background(), 1, 11, UpdatePostInput{Title: "new"})
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}

func TestContentService_DeletePost_AlreadyDeleted(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.setStatusFn = func(context.Context, uint, string, string) (bool, error) { return false, nil }
	svc := newContentService(t, posts, noopReactionRepo(), &statsRepoStub{})

	err := svc.DeletePost(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidState, models.ErrorCode(err))
}

func TestContentService_RecountStats_InvalidTarget(t *testing.T) {
	t.Parallel()

	svc := newContentService(t, noopPostRepo(), noopReactionRepo(), &statsRepoStub{})
	_, err := svc.RecountStats(context.Background(), "thread", 1)
	assertValidationError(t, err)
}
