package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agora/internal/cache"
	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommentService(t *testing.T, comments *commentRepoStub, posts *postRepoStub, stats *statsRepoStub, isAdmin func(context.Context, uint) bool) *CommentService {
	t.Helper()
	return NewCommentService(newTestGorm(t), comments, posts, stats, &userRepoStub{}, isAdmin)
}

func TestCommentService_CreateComment_Validation(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, noopCommentRepo(), noopPostRepo(), &statsRepoStub{}, nil)
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, AuthorID: 1})
		assertValidationError(t, err)
	})

	t.Run("content too long", func(t *testing.T) {
		_, err := svc.CreateComment(ctx, CreateCommentInput{
			PostID: 1, AuthorID: 1, Content: strings.Repeat("x", 10001),
		})
		assertValidationError(t, err)
	})
}

func TestCommentService_CreateComment_InactivePost(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Status: models.StatusDeleted}, nil
	}
	svc := newCommentService(t, noopCommentRepo(), posts, &statsRepoStub{}, nil)

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{PostID: 1, AuthorID: 1, Content: "hi"})
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestCommentService_CreateComment_TopLevel(t *testing.T) {
	t.Parallel()

	comments := noopCommentRepo()
	stats := &statsRepoStub{}
	svc := newCommentService(t, comments, noopPostRepo(), stats, nil)

	comment, err := svc.CreateComment(context.Background(), CreateCommentInput{
		PostID: 1, AuthorID: 4, Content: "first!",
	})
	require.NoError(t, err)
	assert.Nil(t, comment.ParentCommentID)
	require.NotNil(t, comment.Author)
	assert.Equal(t, uint(4), comment.Author.ID)

	require.Len(t, stats.increments, 1)
	assert.Equal(t, models.TargetPost, stats.increments[0].TargetType)
	assert.Equal(t, models.StatsDelta{Comments: 1}, stats.increments[0].Delta)
}

func TestCommentService_CreateComment_ReplyToReplyFlattens(t *testing.T) {
	t.Parallel()

	topLevelID := uint(10)
	replyID := uint(20)
	comments := noopCommentRepo()
	comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		if id == replyID {
			// the chosen parent is itself a reply
			return &models.Comment{ID: replyID, PostID: 1, Status: models.StatusActive, ParentCommentID: &topLevelID}, nil
		}
		return &models.Comment{ID: id, PostID: 1, Status: models.StatusActive}, nil
	}
	var bumpedParent uint
	comments.incReplyCountFn = func(_ context.Context, id uint, delta int) error {
		bumpedParent = id
		return nil
	}
	svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, nil)

	comment, err := svc.CreateComment(context.Background(), CreateCommentInput{
		PostID: 1, AuthorID: 4, Content: "re: re:", ParentCommentID: &replyID,
	})
	require.NoError(t, err)
	require.NotNil(t, comment.ParentCommentID)
	assert.Equal(t, topLevelID, *comment.ParentCommentID, "reply to a reply attaches to the top-level comment")
	assert.Equal(t, topLevelID, bumpedParent)
}

func TestCommentService_CreateComment_ParentChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	parentID := uint(10)

	t.Run("parent on different post", func(t *testing.T) {
		comments := noopCommentRepo()
		comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 2, Status: models.StatusActive}, nil
		}
		svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, AuthorID: 1, Content: "hi", ParentCommentID: &parentID})
		assertValidationError(t, err)
	})

	t.Run("deleted parent", func(t *testing.T) {
		comments := noopCommentRepo()
		comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, Status: models.StatusDeleted}, nil
		}
		svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, nil)
		_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: 1, AuthorID: 1, Content: "hi", ParentCommentID: &parentID})
		require.Error(t, err)
		assert.Equal(t, models.CodeInvalidState, models.ErrorCode(err))
	})
}

// Not parallel: swaps the package-level cache client.
func TestCommentService_CreateComment_IdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	stats := &statsRepoStub{failWith: errors.New("connection reset")}
	svc := newCommentService(t, noopCommentRepo(), noopPostRepo(), stats, nil)
	ctx := context.Background()
	in := CreateCommentInput{
		PostID: 1, AuthorID: 4, Content: "hi",
		IdempotencyKey: "9f3c2a6e-6d1b-4c39-a9f1-0d2b8e5c7a41",
	}

	_, err := svc.CreateComment(ctx, in)
	require.Error(t, err)

	// a failed write releases the claim, so the retry goes through instead
	// of being rejected as a replay
	stats.failWith = nil
	comment, err := svc.CreateComment(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, comment)

	// replay after a successful write is a duplicate
	_, err = svc.CreateComment(ctx, in)
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestCommentService_SoftDelete_Authorization(t *testing.T) {
	t.Parallel()

	comments := noopCommentRepo()
	comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, PostID: 1, Status: models.StatusActive, AuthorID: 7}, nil
	}

	t.Run("stranger rejected", func(t *testing.T) {
		svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, nil)
		err := svc.SoftDelete(context.Background(), 1, 8)
		require.Error(t, err)
		assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	})

	t.Run("admin allowed", func(t *testing.T) {
		admin := func(context.Context, uint) bool { return true }
		svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, admin)
		err := svc.SoftDelete(context.Background(), 1, 8)
		assert.NoError(t, err)
	})
}

func TestCommentService_SoftDelete_ReplyDecrementsParent(t *testing.T) {
	t.Parallel()

	parentID := uint(10)
	comments := noopCommentRepo()
	comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, PostID: 1, Status: models.StatusActive, AuthorID: 7, ParentCommentID: &parentID}, nil
	}
	var bumpedParent uint
	var bumpDelta int
	comments.incReplyCountFn = func(_ context.Context, id uint, delta int) error {
		bumpedParent, bumpDelta = id, delta
		return nil
	}
	stats := &statsRepoStub{}
	svc := newCommentService(t, comments, noopPostRepo(), stats, nil)

	err := svc.SoftDelete(context.Background(), 20, 7)
	require.NoError(t, err)
	assert.Equal(t, parentID, bumpedParent)
	assert.Equal(t, -1, bumpDelta)
	require.Len(t, stats.increments, 1)
	assert.Equal(t, models.StatsDelta{Comments: -1}, stats.increments[0].Delta)
}

func TestCommentService_SoftDelete_AlreadyDeleted(t *testing.T) {
	t.Parallel()

	comments := noopCommentRepo()
	comments.setStatusFn = func(context.Context, uint, string, string) (bool, error) { return false, nil }
	svc := newCommentService(t, comments, noopPostRepo(), &statsRepoStub{}, nil)

	err := svc.SoftDelete(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidState, models.ErrorCode(err))
}

func TestCommentService_ListComments(t *testing.T) {
	t.Parallel()

	parentID := uint(10)
	comments := noopCommentRepo()
	comments.listTopLevelFn = func(context.Context, uint, int, int) ([]*models.Comment, int64, error) {
		return []*models.Comment{
			{ID: parentID, PostID: 1, Status: models.StatusActive, AuthorID: 5, Content: "hello", ReplyCount: 1},
			{ID: 11, PostID: 1, Status: models.StatusDeleted, AuthorID: 6, Content: "secret", ReplyCount: 2},
		}, 2, nil
	}
	comments.repliesForFn = func(_ context.Context, parentIDs []uint, _ int) (map[uint][]*models.Comment, error) {
		return map[uint][]*models.Comment{
			parentID: {{ID: 20, PostID: 1, Status: models.StatusActive, AuthorID: 7, Content: "re", ParentCommentID: &parentID}},
		}, nil
	}
	var resolvedIDs []uint
	users := &userRepoStub{resolveFn: func(_ context.Context, ids []uint) (map[uint]models.AuthorRef, error) {
		resolvedIDs = ids
		refs := map[uint]models.AuthorRef{}
		for _, id := range ids {
			refs[id] = models.AuthorRef{ID: id, DisplayName: "U", Handle: "u"}
		}
		return refs, nil
	}}
	svc := NewCommentService(newTestGorm(t), comments, noopPostRepo(), &statsRepoStub{}, users, nil)

	result, err := svc.ListComments(context.Background(), ListCommentsInput{
		PostID: 1, Page: 1, PageSize: 20, IncludeReplies: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Comments, 2)

	// one batched author resolve covering parents and replies
	assert.ElementsMatch(t, []uint{5, 6, 7}, resolvedIDs)

	// deleted placeholder is masked
	deleted := result.Comments[1]
	assert.Equal(t, models.DeletedCommentPlaceholder, deleted.Content)
	assert.Nil(t, deleted.Author)
	assert.Zero(t, deleted.AuthorID)

	require.Len(t, result.Comments[0].Replies, 1)
	require.NotNil(t, result.Comments[0].Replies[0].Author)
	assert.Equal(t, int64(2), result.PageInfo.Total)
}

func TestCommentService_ListComments_PostMustExist(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	svc := newCommentService(t, noopCommentRepo(), posts, &statsRepoStub{}, nil)

	_, err := svc.ListComments(context.Background(), ListCommentsInput{PostID: 99, Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
