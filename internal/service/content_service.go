package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"agora/internal/cache"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

const (
	maxTitleLength   = 300
	maxContentLength = 50000
	maxPageSize      = 100
	defaultPageSize  = 20
)

// ContentService owns the post lifecycle and the listing engine.
type ContentService struct {
	db           *gorm.DB
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	statsRepo    repository.StatsRepository
	userRepo     repository.UserRepository
}

func NewContentService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	statsRepo repository.StatsRepository,
	userRepo repository.UserRepository,
) *ContentService {
	return &ContentService{
		db:           db,
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		statsRepo:    statsRepo,
		userRepo:     userRepo,
	}
}

type CreatePostInput struct {
	AuthorID uint
	Title    string
	Content  string
	Category string
}

func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLength {
		return nil, models.NewValidationError("Title is too long")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLength {
		return nil, models.NewValidationError("Content is too long")
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Status:   models.StatusActive,
		AuthorID: in.AuthorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// GetPost returns one post with its joined counters and author, enriched
// with the viewer's reaction state when viewerID is non-zero.
func (s *ContentService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusActive {
		return nil, models.NewNotFoundError("Post", id)
	}

	if viewerID != 0 {
		reaction, err := s.reactionRepo.Get(ctx, viewerID, models.TargetPost, id)
		switch {
		case err == nil:
			post.Viewer = reaction.Viewer()
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no reaction record yet; a failed read still fails the request
			post.Viewer = &models.ViewerReaction{}
		default:
			return nil, err
		}
	}
	return post, nil
}

type ListContentInput struct {
	Category string
	AuthorID uint
	SortBy   string
	Search   string
	Page     int
	PageSize int
	ViewerID uint
}

type ListContentResult struct {
	Posts    []*models.Post  `json:"posts"`
	PageInfo models.PageInfo `json:"page_info"`
}

// ListContent runs the composed listing query and batch-enriches the page
// with viewer reaction state. Relevance sort only carries meaning alongside
// a search term; a search with no explicit sort defaults to relevance.
func (s *ContentService) ListContent(ctx context.Context, in ListContentInput) (*ListContentResult, error) {
	if in.Page < 1 {
		return nil, models.NewValidationError("Page must be at least 1")
	}
	if in.PageSize <= 0 {
		in.PageSize = defaultPageSize
	}
	if in.PageSize > maxPageSize {
		return nil, models.NewValidationError("Page size exceeds maximum")
	}

	in.Search = strings.TrimSpace(in.Search)
	if in.SortBy == "" {
		if in.Search != "" {
			in.SortBy = "relevance"
		} else {
			in.SortBy = "created_at"
		}
	}
	if !repository.SortableField(in.SortBy) {
		return nil, models.NewValidationError("Unsupported sort field")
	}
	if in.SortBy == "relevance" && in.Search == "" {
		return nil, models.NewValidationError("Relevance sort requires a search term")
	}

	posts, total, err := s.postRepo.List(ctx, repository.ListParams{
		Filter: repository.ContentFilter{
			Category: in.Category,
			AuthorID: in.AuthorID,
		},
		SortBy:   in.SortBy,
		Search:   in.Search,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		return nil, err
	}

	if in.ViewerID != 0 && len(posts) > 0 {
		ids := make([]uint, len(posts))
		for i, post := range posts {
			ids[i] = post.ID
		}
		reactions, err := s.reactionRepo.GetForTargets(ctx, in.ViewerID, models.TargetPost, ids)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			if reaction, ok := reactions[post.ID]; ok {
				post.Viewer = reaction.Viewer()
			} else {
				post.Viewer = &models.ViewerReaction{}
			}
		}
	}

	return &ListContentResult{
		Posts:    posts,
		PageInfo: models.NewPageInfo(in.Page, in.PageSize, total),
	}, nil
}

type UpdatePostInput struct {
	Title    string
	Content  string
	Category string
}

func (s *ContentService) UpdatePost(ctx context.Context, id, userID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusActive {
		return nil, models.NewNotFoundError("Post", id)
	}
	if post.AuthorID != userID {
		return nil, models.NewUnauthorizedError("Not the post author")
	}

	if in.Title != "" {
		in.Title = strings.TrimSpace(in.Title)
		if in.Title == "" || len(in.Title) > maxTitleLength {
			return nil, models.NewValidationError("Invalid title")
		}
		post.Title = in.Title
	}
	if in.Content != "" {
		in.Content = strings.TrimSpace(in.Content)
		if in.Content == "" || len(in.Content) > maxContentLength {
			return nil, models.NewValidationError("Invalid content")
		}
		post.Content = in.Content
	}
	if in.Category != "" {
		post.Category = in.Category
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, id)
}

// DeletePost soft-deletes the caller's post. The row survives so comment
// threads and counters stay consistent; it just stops being listed.
func (s *ContentService) DeletePost(ctx context.Context, id, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewUnauthorizedError("Not the post author")
	}

	changed, err := s.postRepo.SetStatus(ctx, id, models.StatusActive, models.StatusDeleted)
	if err != nil {
		return err
	}
	if !changed {
		return models.NewInvalidStateError("Post is not active")
	}
	return nil
}

// HidePost is the moderation path: active -> hidden without touching the
// author's ownership or any counters.
func (s *ContentService) HidePost(ctx context.Context, id uint) error {
	changed, err := s.postRepo.SetStatus(ctx, id, models.StatusActive, models.StatusHidden)
	if err != nil {
		return err
	}
	if !changed {
		return models.NewInvalidStateError("Post is not active")
	}
	return nil
}

// BumpViewCount records one view, fire-and-forget with bounded retry. A
// lost bump is tolerable; a blocked read path is not, so failures are
// logged and swallowed.
func (s *ContentService) BumpViewCount(ctx context.Context, targetType string, id uint) {
	if !models.ValidTargetType(targetType) {
		return
	}
	err := s.statsRepo.IncrementWithRetry(ctx, targetType, id, models.StatsDelta{Views: 1})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "view count bump dropped",
			slog.String("target_type", targetType),
			slog.Any("target_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if targetType == models.TargetPost {
		cache.InvalidatePost(ctx, id)
	}
}

// RecountStats re-derives a target's counters from source-of-truth rows.
func (s *ContentService) RecountStats(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error) {
	if !models.ValidTargetType(targetType) {
		return nil, models.NewValidationError("Invalid target_type")
	}
	stats, err := s.statsRepo.Recount(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if targetType == models.TargetPost {
		cache.InvalidatePost(ctx, targetID)
		cache.InvalidatePostsList(ctx)
	}
	return stats, nil
}
