package repository

import (
	"context"
	"errors"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListTopLevel pages through a post's top-level comments in creation
	// order, returning items and the total match count in one round trip.
	// Soft-deleted comments are included only while they still have active
	// replies (placeholder rows for thread integrity).
	ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error)
	// RepliesFor loads up to perParent active replies for each parent in one
	// query, oldest first.
	RepliesFor(ctx context.Context, parentIDs []uint, perParent int) (map[uint][]*models.Comment, error)
	// IncrementReplyCount atomically bumps a comment's denormalized active
	// reply counter by delta (may be negative).
	IncrementReplyCount(ctx context.Context, id uint, delta int) error
	// SetStatus flips the lifecycle status when the row is currently in
	// fromStatus; returns false when no row matched.
	SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{db: tx}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, err
	}
	return &comment, nil
}

// visibleTopLevel matches active top-level comments plus deleted ones that
// still anchor visible replies.
const visibleTopLevel = `post_id = ? AND parent_comment_id IS NULL
	AND (status = 'active' OR (status = 'deleted' AND reply_count > 0))`

// commentListRow mirrors postListRow: nullable item columns so an
// out-of-range page still carries the total in its single marker row.
type commentListRow struct {
	TotalCount      int64
	ID              *uint
	Content         *string
	Status          *string
	AuthorID        *uint
	PostID          *uint
	ParentCommentID *uint
	ReplyCount      *int64
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

func (row *commentListRow) toComment() *models.Comment {
	c := &models.Comment{
		ID:              *row.ID,
		ParentCommentID: row.ParentCommentID,
	}
	if row.Content != nil {
		c.Content = *row.Content
	}
	if row.Status != nil {
		c.Status = *row.Status
	}
	if row.AuthorID != nil {
		c.AuthorID = *row.AuthorID
	}
	if row.PostID != nil {
		c.PostID = *row.PostID
	}
	if row.ReplyCount != nil {
		c.ReplyCount = *row.ReplyCount
	}
	if row.CreatedAt != nil {
		c.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		c.UpdatedAt = *row.UpdatedAt
	}
	return c
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, int64, error) {
	defer observability.TrackQuery("list", "comments")()

	query := `
WITH filtered AS (
	SELECT comments.id, comments.content, comments.status, comments.author_id, comments.post_id,
		comments.parent_comment_id, comments.reply_count, comments.created_at, comments.updated_at
	FROM comments
	WHERE ` + visibleTopLevel + `
), page AS (
	SELECT * FROM filtered ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?
)
SELECT (SELECT COUNT(*) FROM filtered) AS total_count, page.*
FROM (SELECT 1) AS one
LEFT JOIN page ON 1 = 1`

	var rows []commentListRow
	if err := r.db.WithContext(ctx).Raw(query, postID, limit, offset).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	comments := make([]*models.Comment, 0, len(rows))
	var total int64
	for i := range rows {
		total = rows[i].TotalCount
		if rows[i].ID == nil {
			continue
		}
		comments = append(comments, rows[i].toComment())
	}
	return comments, total, nil
}

func (r *commentRepository) RepliesFor(ctx context.Context, parentIDs []uint, perParent int) (map[uint][]*models.Comment, error) {
	result := make(map[uint][]*models.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return result, nil
	}

	// Bounded replies per parent protect response size; deeper pages of a
	// thread go through ListTopLevel-style pagination on the client.
	var replies []*models.Comment
	err := r.db.WithContext(ctx).Raw(`
SELECT id, content, status, author_id, post_id, parent_comment_id, reply_count, created_at, updated_at
FROM (
	SELECT comments.*, ROW_NUMBER() OVER (PARTITION BY parent_comment_id ORDER BY created_at ASC, id ASC) AS rn
	FROM comments
	WHERE parent_comment_id IN ? AND status = 'active'
) ranked
WHERE rn <= ?
ORDER BY parent_comment_id, created_at ASC, id ASC`, parentIDs, perParent).Scan(&replies).Error
	if err != nil {
		return nil, err
	}

	for _, reply := range replies {
		parent := *reply.ParentCommentID
		result[parent] = append(result[parent], reply)
	}
	return result, nil
}

func (r *commentRepository) IncrementReplyCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("reply_count", gorm.Expr("reply_count + ?", delta)).Error
}

func (r *commentRepository) SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
