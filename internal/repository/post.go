package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// ContentFilter narrows a listing to equality predicates.
type ContentFilter struct {
	Category string
	AuthorID uint
	// Status partition; empty means active only.
	Status string
}

// ListParams drives one paginated listing query.
type ListParams struct {
	Filter   ContentFilter
	SortBy   string
	Search   string
	Page     int
	PageSize int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// List runs the composed listing query: filter, stats + author left
	// joins, sort (optionally relevance-ranked), offset/limit and the total
	// match count, all in a single round trip.
	List(ctx context.Context, p ListParams) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	// SetStatus flips the lifecycle status when the row is currently in
	// fromStatus; returns false when no row matched (already transitioned
	// or absent). Rows are never physically removed.
	SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx}
}

const postSelectColumns = `posts.id, posts.title, posts.content, posts.category, posts.status, posts.author_id, posts.created_at, posts.updated_at,
	COALESCE(s.view_count, 0) AS view_count,
	COALESCE(s.like_count, 0) AS like_count,
	COALESCE(s.dislike_count, 0) AS dislike_count,
	COALESCE(s.comment_count, 0) AS comment_count,
	COALESCE(s.bookmark_count, 0) AS bookmark_count,
	COALESCE(u.display_name, '') AS author_name,
	COALESCE(u.username, '') AS author_handle`

const postJoins = `LEFT JOIN target_stats s ON s.target_type = 'post' AND s.target_id = posts.id
	LEFT JOIN users u ON u.id = posts.author_id`

// postSortColumns whitelists sortable fields and maps them to ORDER BY
// clauses over the filtered CTE's output columns.
var postSortColumns = map[string]string{
	"created_at":     "created_at DESC",
	"view_count":     "view_count DESC, created_at DESC",
	"like_count":     "like_count DESC, created_at DESC",
	"dislike_count":  "dislike_count DESC, created_at DESC",
	"comment_count":  "comment_count DESC, created_at DESC",
	"bookmark_count": "bookmark_count DESC, created_at DESC",
	"relevance":      "rank DESC, created_at DESC",
}

// SortableField reports whether field is an accepted sort key.
func SortableField(field string) bool {
	_, ok := postSortColumns[field]
	return ok
}

const searchVector = `setweight(to_tsvector('english', posts.title), 'A') || setweight(to_tsvector('english', posts.content), 'B')`

// postListRow is the scan target for one listing row. Every item column is
// nullable because an out-of-range page still yields one row carrying the
// total with a NULL item (LEFT JOIN against the page branch).
type postListRow struct {
	TotalCount    int64
	ID            *uint
	Title         *string
	Content       *string
	Category      *string
	Status        *string
	AuthorID      *uint
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	ViewCount     *int64
	LikeCount     *int64
	DislikeCount  *int64
	CommentCount  *int64
	BookmarkCount *int64
	AuthorName    *string
	AuthorHandle  *string
	Rank          *float64
}

func (row *postListRow) toPost() *models.Post {
	post := &models.Post{
		ID:       *row.ID,
		AuthorID: *row.AuthorID,
	}
	if row.Title != nil {
		post.Title = *row.Title
	}
	if row.Content != nil {
		post.Content = *row.Content
	}
	if row.Category != nil {
		post.Category = *row.Category
	}
	if row.Status != nil {
		post.Status = *row.Status
	}
	if row.CreatedAt != nil {
		post.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		post.UpdatedAt = *row.UpdatedAt
	}
	if row.ViewCount != nil {
		post.ViewCount = *row.ViewCount
	}
	if row.LikeCount != nil {
		post.LikeCount = *row.LikeCount
	}
	if row.DislikeCount != nil {
		post.DislikeCount = *row.DislikeCount
	}
	if row.CommentCount != nil {
		post.CommentCount = *row.CommentCount
	}
	if row.BookmarkCount != nil {
		post.BookmarkCount = *row.BookmarkCount
	}
	if row.AuthorName != nil {
		post.AuthorName = *row.AuthorName
	}
	if row.AuthorHandle != nil {
		post.AuthorHandle = *row.AuthorHandle
	}
	return post
}

func (r *postRepository) List(ctx context.Context, p ListParams) ([]*models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()

	selectCols := postSelectColumns
	conds := []string{"posts.status = ?"}
	status := p.Filter.Status
	if status == "" {
		status = models.StatusActive
	}
	args := []interface{}{status}

	if p.Filter.Category != "" {
		conds = append(conds, "posts.category = ?")
		args = append(args, p.Filter.Category)
	}
	if p.Filter.AuthorID != 0 {
		conds = append(conds, "posts.author_id = ?")
		args = append(args, p.Filter.AuthorID)
	}
	if p.Search != "" {
		selectCols += fmt.Sprintf(",\n\tts_rank(%s, plainto_tsquery('english', ?)) AS rank", searchVector)
		args = append([]interface{}{p.Search}, args...)
		conds = append(conds, fmt.Sprintf("(%s) @@ plainto_tsquery('english', ?)", searchVector))
		args = append(args, p.Search)
	}

	orderBy, ok := postSortColumns[p.SortBy]
	if !ok {
		orderBy = postSortColumns["created_at"]
	}

	offset := (p.Page - 1) * p.PageSize
	args = append(args, p.PageSize, offset)

	// The count branch runs over the same filtered set as the page branch,
	// so the total arrives in the same round trip; the outer LEFT JOIN
	// keeps exactly one row (carrying the total) when the page is empty.
	query := fmt.Sprintf(`
WITH filtered AS (
	SELECT %s
	FROM posts
	%s
	WHERE %s
), page AS (
	SELECT * FROM filtered ORDER BY %s LIMIT ? OFFSET ?
)
SELECT (SELECT COUNT(*) FROM filtered) AS total_count, page.*
FROM (SELECT 1) AS one
LEFT JOIN page ON 1 = 1`,
		selectCols, postJoins, strings.Join(conds, " AND "), orderBy)

	var rows []postListRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]*models.Post, 0, len(rows))
	var total int64
	for i := range rows {
		total = rows[i].TotalCount
		if rows[i].ID == nil {
			continue // empty-page marker row
		}
		posts = append(posts, rows[i].toPost())
	}
	return posts, total, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return err
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Table("posts").
			Select(postSelectColumns).
			Joins(postJoins).
			Where("posts.id = ?", id).
			Take(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":    post.Title,
			"content":  post.Content,
			"category": post.Category,
		}).Error
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) SetStatus(ctx context.Context, id uint, fromStatus, toStatus string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidatePostsList(ctx)
	return true, nil
}
