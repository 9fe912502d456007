package service

import (
	"context"
	"testing"

	"agora/internal/models"
	"agora/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestGorm opens an in-memory sqlite handle. The stubs own all data; the
// handle only backs the services' transaction blocks.
func newTestGorm(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

// --- repository stubs ---

type reactionRepoStub struct {
	getForUpdateFn  func(context.Context, uint, string, uint) (*models.Reaction, error)
	createBlankFn   func(context.Context, uint, string, uint) error
	saveFn          func(context.Context, *models.Reaction) error
	getFn           func(context.Context, uint, string, uint) (*models.Reaction, error)
	getForTargetsFn func(context.Context, uint, string, []uint) (map[uint]*models.Reaction, error)
}

func (s *reactionRepoStub) WithTx(*gorm.DB) repository.ReactionRepository { return s }
func (s *reactionRepoStub) GetForUpdate(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	return s.getForUpdateFn(ctx, userID, targetType, targetID)
}
func (s *reactionRepoStub) CreateBlank(ctx context.Context, userID uint, targetType string, targetID uint) error {
	return s.createBlankFn(ctx, userID, targetType, targetID)
}
func (s *reactionRepoStub) Save(ctx context.Context, reaction *models.Reaction) error {
	return s.saveFn(ctx, reaction)
}
func (s *reactionRepoStub) Get(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	return s.getFn(ctx, userID, targetType, targetID)
}
func (s *reactionRepoStub) GetForTargets(ctx context.Context, userID uint, targetType string, targetIDs []uint) (map[uint]*models.Reaction, error) {
	return s.getForTargetsFn(ctx, userID, targetType, targetIDs)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		getForUpdateFn: func(_ context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
			return &models.Reaction{UserID: userID, TargetType: targetType, TargetID: targetID}, nil
		},
		createBlankFn: func(context.Context, uint, string, uint) error { return nil },
		saveFn:        func(context.Context, *models.Reaction) error { return nil },
		getFn: func(_ context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
			return &models.Reaction{UserID: userID, TargetType: targetType, TargetID: targetID}, nil
		},
		getForTargetsFn: func(context.Context, uint, string, []uint) (map[uint]*models.Reaction, error) {
			return map[uint]*models.Reaction{}, nil
		},
	}
}

type postRepoStub struct {
	createFn    func(context.Context, *models.Post) error
	getByIDFn   func(context.Context, uint) (*models.Post, error)
	listFn      func(context.Context, repository.ListParams) ([]*models.Post, int64, error)
	updateFn    func(context.Context, *models.Post) error
	setStatusFn func(context.Context, uint, string, string) (bool, error)
}

func (s *postRepoStub) WithTx(*gorm.DB) repository.PostRepository { return s }
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, p repository.ListParams) ([]*models.Post, int64, error) {
	return s.listFn(ctx, p)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error) {
	return s.setStatusFn(ctx, id, fromStatus, toStatus)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Title: "t", Content: "c", Status: models.StatusActive, AuthorID: 1}, nil
		},
		listFn: func(context.Context, repository.ListParams) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		updateFn:    func(context.Context, *models.Post) error { return nil },
		setStatusFn: func(context.Context, uint, string, string) (bool, error) { return true, nil },
	}
}

type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listTopLevelFn  func(context.Context, uint, int, int) ([]*models.Comment, int64, error)
	repliesForFn    func(context.Context, []uint, int) (map[uint][]*models.Comment, error)
	incReplyCountFn func(context.Context, uint, int) error
	setStatusFn     func(context.Context, uint, string, string) (bool, error)
}

func (s *commentRepoStub) WithTx(*gorm.DB) repository.CommentRepository { return s }
func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error) {
	return s.listTopLevelFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) RepliesFor(ctx context.Context, parentIDs []uint, perParent int) (map[uint][]*models.Comment, error) {
	return s.repliesForFn(ctx, parentIDs, perParent)
}
func (s *commentRepoStub) IncrementReplyCount(ctx context.Context, id uint, delta int) error {
	return s.incReplyCountFn(ctx, id, delta)
}
func (s *commentRepoStub) SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error) {
	return s.setStatusFn(ctx, id, fromStatus, toStatus)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 100
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, Status: models.StatusActive, AuthorID: 1}, nil
		},
		listTopLevelFn: func(context.Context, uint, int, int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		repliesForFn: func(context.Context, []uint, int) (map[uint][]*models.Comment, error) {
			return map[uint][]*models.Comment{}, nil
		},
		incReplyCountFn: func(context.Context, uint, int) error { return nil },
		setStatusFn:     func(context.Context, uint, string, string) (bool, error) { return true, nil },
	}
}

// statsRepoStub accumulates increments in memory so tests can assert the
// exact deltas the services emit.
type statsRepoStub struct {
	increments []recordedIncrement
	recountFn  func(context.Context, string, uint) (*models.TargetStats, error)
	failWith   error
}

type recordedIncrement struct {
	TargetType string
	TargetID   uint
	Delta      models.StatsDelta
}

func (s *statsRepoStub) WithTx(*gorm.DB) repository.StatsRepository { return s }
func (s *statsRepoStub) Increment(_ context.Context, targetType string, targetID uint, delta models.StatsDelta) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.increments = append(s.increments, recordedIncrement{targetType, targetID, delta})
	return nil
}
func (s *statsRepoStub) IncrementWithRetry(ctx context.Context, targetType string, targetID uint, delta models.StatsDelta) error {
	return s.Increment(ctx, targetType, targetID, delta)
}
func (s *statsRepoStub) Get(_ context.Context, targetType string, targetID uint) (*models.TargetStats, error) {
	stats := &models.TargetStats{TargetType: targetType, TargetID: targetID}
	for _, inc := range s.increments {
		if inc.TargetType != targetType || inc.TargetID != targetID {
			continue
		}
		stats.ViewCount += inc.Delta.Views
		stats.LikeCount += inc.Delta.Likes
		stats.DislikeCount += inc.Delta.Dislikes
		stats.CommentCount += inc.Delta.Comments
		stats.BookmarkCount += inc.Delta.Bookmarks
	}
	return stats, nil
}
func (s *statsRepoStub) GetForTargets(context.Context, string, []uint) (map[uint]*models.TargetStats, error) {
	return map[uint]*models.TargetStats{}, nil
}
func (s *statsRepoStub) Recount(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error) {
	if s.recountFn != nil {
		return s.recountFn(ctx, targetType, targetID)
	}
	return &models.TargetStats{TargetType: targetType, TargetID: targetID}, nil
}

type userRepoStub struct {
	resolveFn func(context.Context, []uint) (map[uint]models.AuthorRef, error)
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	return &models.User{ID: id}, nil
}
func (s *userRepoStub) ResolveAuthors(ctx context.Context, ids []uint) (map[uint]models.AuthorRef, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, ids)
	}
	refs := make(map[uint]models.AuthorRef, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		refs[id] = models.AuthorRef{ID: id, DisplayName: "User", Handle: "user"}
	}
	return refs, nil
}
