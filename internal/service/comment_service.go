package service

import (
	"context"
	"strings"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

const (
	maxCommentLength = 10000
	// repliesPerComment bounds how many replies ride along with each
	// top-level comment in a listing page.
	repliesPerComment = 5
)

// CommentService owns the one-level comment hierarchy: creation with
// reply flattening, soft deletion with placeholder visibility, and paged
// listing with bounded reply previews.
type CommentService struct {
	db          *gorm.DB
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	statsRepo   repository.StatsRepository
	userRepo    repository.UserRepository
	isAdmin     func(ctx context.Context, userID uint) bool
}

func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	statsRepo repository.StatsRepository,
	userRepo repository.UserRepository,
	isAdmin func(ctx context.Context, userID uint) bool,
) *CommentService {
	if isAdmin == nil {
		isAdmin = func(context.Context, uint) bool { return false }
	}
	return &CommentService{
		db:          db,
		commentRepo: commentRepo,
		postRepo:    postRepo,
		statsRepo:   statsRepo,
		userRepo:    userRepo,
		isAdmin:     isAdmin,
	}
}

type CreateCommentInput struct {
	PostID          uint
	AuthorID        uint
	Content         string
	ParentCommentID *uint
	// IdempotencyKey, when set, suppresses duplicate creation on client
	// retries within the key's TTL.
	IdempotencyKey string
}

// CreateComment adds a comment to an active post. Replies to replies are
// flattened at creation time: the stored parent is always a top-level
// comment, keeping the hierarchy exactly one level deep.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLength {
		return nil, models.NewValidationError("Content is too long")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusActive {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	parentID := in.ParentCommentID
	if parentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
		if parent.Status != models.StatusActive {
			return nil, models.NewInvalidStateError("Parent comment is not active")
		}
		if parent.ParentCommentID != nil {
			// Replying to a reply attaches to the thread's top-level comment.
			parentID = parent.ParentCommentID
		}
	}

	if in.IdempotencyKey != "" && !cache.ClaimIdempotencyKey(ctx, in.IdempotencyKey) {
		return nil, models.NewConflictError("Duplicate request", nil)
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		AuthorID:        in.AuthorID,
		Content:         in.Content,
		Status:          models.StatusActive,
		ParentCommentID: parentID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := s.commentRepo.WithTx(tx)
		if err := comments.Create(ctx, comment); err != nil {
			return err
		}
		if err := s.statsRepo.WithTx(tx).Increment(ctx, models.TargetPost, in.PostID, models.StatsDelta{Comments: 1}); err != nil {
			return err
		}
		if parentID != nil {
			return comments.IncrementReplyCount(ctx, *parentID, 1)
		}
		return nil
	})
	if err != nil {
		// Nothing was written; the claim must not outlive the failure or the
		// client's retry would be rejected as a replay.
		if in.IdempotencyKey != "" {
			cache.ReleaseIdempotencyKey(ctx, in.IdempotencyKey)
		}
		return nil, err
	}

	cache.Invalidate(ctx, cache.CommentsKey(in.PostID))
	cache.InvalidatePost(ctx, in.PostID)

	authors, err := s.userRepo.ResolveAuthors(ctx, []uint{in.AuthorID})
	if err == nil {
		if ref, ok := authors[in.AuthorID]; ok {
			comment.Author = &ref
		}
	}
	return comment, nil
}

// SoftDelete marks the caller's (or an admin's target) comment deleted.
// The row stays; whether it keeps appearing in listings depends on its
// reply count at read time.
func (s *CommentService) SoftDelete(ctx context.Context, id, userID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID && !s.isAdmin(ctx, userID) {
		return models.NewUnauthorizedError("Not the comment author")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := s.commentRepo.WithTx(tx)

		changed, err := comments.SetStatus(ctx, id, models.StatusActive, models.StatusDeleted)
		if err != nil {
			return err
		}
		if !changed {
			return models.NewInvalidStateError("Comment is not active")
		}

		// The post's visible comment count drops by one; replies under a
		// deleted top-level comment stay active and stay counted.
		if err := s.statsRepo.WithTx(tx).Increment(ctx, models.TargetPost, comment.PostID, models.StatsDelta{Comments: -1}); err != nil {
			return err
		}
		if comment.ParentCommentID != nil {
			return comments.IncrementReplyCount(ctx, *comment.ParentCommentID, -1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.Invalidate(ctx, cache.CommentsKey(comment.PostID))
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}

type ListCommentsInput struct {
	PostID         uint
	Page           int
	PageSize       int
	IncludeReplies bool
}

type ListCommentsResult struct {
	Comments []*models.Comment `json:"comments"`
	PageInfo models.PageInfo   `json:"page_info"`
}

// ListComments pages a post's top-level comments oldest-first, optionally
// attaching up to repliesPerComment replies each. Authors for the whole
// page (parents and replies) resolve in a single batched lookup, and
// deleted placeholder comments are masked before return.
func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) (*ListCommentsResult, error) {
	if in.Page < 1 {
		return nil, models.NewValidationError("Page must be at least 1")
	}
	if in.PageSize <= 0 {
		in.PageSize = defaultPageSize
	}
	if in.PageSize > maxPageSize {
		return nil, models.NewValidationError("Page size exceeds maximum")
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	offset := (in.Page - 1) * in.PageSize
	comments, total, err := s.commentRepo.ListTopLevel(ctx, in.PostID, in.PageSize, offset)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]uint, 0, len(comments))
	for _, comment := range comments {
		authorIDs = append(authorIDs, comment.AuthorID)
	}

	if in.IncludeReplies && len(comments) > 0 {
		parentIDs := make([]uint, len(comments))
		for i, comment := range comments {
			parentIDs[i] = comment.ID
		}
		replies, err := s.commentRepo.RepliesFor(ctx, parentIDs, repliesPerComment)
		if err != nil {
			return nil, err
		}
		for _, comment := range comments {
			comment.Replies = replies[comment.ID]
			for _, reply := range comment.Replies {
				authorIDs = append(authorIDs, reply.AuthorID)
			}
		}
	}

	authors, err := s.userRepo.ResolveAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		if ref, ok := authors[comment.AuthorID]; ok {
			comment.Author = &ref
		}
		comment.Mask()
		for _, reply := range comment.Replies {
			if ref, ok := authors[reply.AuthorID]; ok {
				reply.Author = &ref
			}
		}
	}

	return &ListCommentsResult{
		Comments: comments,
		PageInfo: models.NewPageInfo(in.Page, in.PageSize, total),
	}, nil
}
