package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"
)

// StatsRepository owns the target_stats counter rows. All regular writes go
// through Increment, which is a single atomic upsert statement; the only
// full overwrite is Recount, the documented drift-repair path.
type StatsRepository interface {
	WithTx(tx *gorm.DB) StatsRepository
	Increment(ctx context.Context, targetType string, targetID uint, delta models.StatsDelta) error
	// IncrementWithRetry retries transient increment failures with bounded
	// exponential backoff. Increments are idempotent at the statement level
	// only, so this is reserved for fire-and-forget deltas (view bumps)
	// where an occasional double-apply is acceptable.
	IncrementWithRetry(ctx context.Context, targetType string, targetID uint, delta models.StatsDelta) error
	Get(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error)
	GetForTargets(ctx context.Context, targetType string, targetIDs []uint) (map[uint]*models.TargetStats, error)
	Recount(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) WithTx(tx *gorm.DB) StatsRepository {
	return &statsRepository{db: tx}
}

const incrementStatsSQL = `
INSERT INTO target_stats (target_type, target_id, view_count, like_count, dislike_count, comment_count, bookmark_count, last_activity_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (target_type, target_id) DO UPDATE SET
	view_count = target_stats.view_count + excluded.view_count,
	like_count = target_stats.like_count + excluded.like_count,
	dislike_count = target_stats.dislike_count + excluded.dislike_count,
	comment_count = target_stats.comment_count + excluded.comment_count,
	bookmark_count = target_stats.bookmark_count + excluded.bookmark_count,
	last_activity_at = excluded.last_activity_at`

func (r *statsRepository) Increment(ctx context.Context, targetType string, targetID uint, delta models.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	defer observability.TrackQuery("increment", "target_stats")()

	// Increment-style upsert: concurrent writers can never lose updates
	// the way a read-compute-overwrite cycle would.
	return r.db.WithContext(ctx).Exec(incrementStatsSQL,
		targetType, targetID,
		delta.Views, delta.Likes, delta.Dislikes, delta.Comments, delta.Bookmarks,
		time.Now().UTC(),
	).Error
}

func (r *statsRepository) IncrementWithRetry(ctx context.Context, targetType string, targetID uint, delta models.StatsDelta) error {
	operation := func() (struct{}, error) {
		return struct{}{}, r.Increment(ctx, targetType, targetID, delta)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(4),
		backoff.WithNotify(func(err error, next time.Duration) {
			observability.CounterIncrementRetries.Inc()
			middleware.Logger.WarnContext(ctx, "retrying counter increment",
				slog.String("target_type", targetType),
				slog.Any("target_id", targetID),
				slog.Duration("next_attempt_in", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		observability.CounterIncrementFailures.Inc()
		return models.NewStorageUnavailableError(err)
	}
	return nil
}

func (r *statsRepository) Get(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error) {
	var stats models.TargetStats
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Lazily created rows: absence means all-zero counters.
		return &models.TargetStats{TargetType: targetType, TargetID: targetID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) GetForTargets(ctx context.Context, targetType string, targetIDs []uint) (map[uint]*models.TargetStats, error) {
	result := make(map[uint]*models.TargetStats, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}
	var rows []models.TargetStats
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].TargetID] = &rows[i]
	}
	return result, nil
}

// recountRow carries the re-derived counters for one target.
type recountRow struct {
	LikeCount     int64
	DislikeCount  int64
	BookmarkCount int64
}

// Recount re-derives like/dislike/bookmark counts from Reaction records and
// the comment count from active Comments, then overwrites the stats row.
// This is the repair path for drift (e.g. an interrupted multi-step write);
// view_count has no source of truth to recount from and is preserved.
func (r *statsRepository) Recount(ctx context.Context, targetType string, targetID uint) (*models.TargetStats, error) {
	var reacts recountRow
	err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select(`COALESCE(SUM(CASE WHEN liked THEN 1 ELSE 0 END), 0) AS like_count,
			COALESCE(SUM(CASE WHEN disliked THEN 1 ELSE 0 END), 0) AS dislike_count,
			COALESCE(SUM(CASE WHEN bookmarked THEN 1 ELSE 0 END), 0) AS bookmark_count`).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Scan(&reacts).Error
	if err != nil {
		return nil, err
	}

	var commentCount int64
	commentQuery := r.db.WithContext(ctx).Model(&models.Comment{}).Where("status = ?", models.StatusActive)
	if targetType == models.TargetPost {
		// Replies are attached to the post too, so they count here.
		commentQuery = commentQuery.Where("post_id = ?", targetID)
	} else {
		commentQuery = commentQuery.Where("parent_comment_id = ?", targetID)
	}
	if err := commentQuery.Count(&commentCount).Error; err != nil {
		return nil, err
	}

	current, err := r.Get(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}

	stats := &models.TargetStats{
		TargetType:     targetType,
		TargetID:       targetID,
		ViewCount:      current.ViewCount,
		LikeCount:      reacts.LikeCount,
		DislikeCount:   reacts.DislikeCount,
		CommentCount:   commentCount,
		BookmarkCount:  reacts.BookmarkCount,
		LastActivityAt: time.Now().UTC(),
	}

	err = r.db.WithContext(ctx).Exec(`
INSERT INTO target_stats (target_type, target_id, view_count, like_count, dislike_count, comment_count, bookmark_count, last_activity_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (target_type, target_id) DO UPDATE SET
	like_count = excluded.like_count,
	dislike_count = excluded.dislike_count,
	comment_count = excluded.comment_count,
	bookmark_count = excluded.bookmark_count,
	last_activity_at = excluded.last_activity_at`,
		stats.TargetType, stats.TargetID,
		stats.ViewCount, stats.LikeCount, stats.DislikeCount, stats.CommentCount, stats.BookmarkCount,
		stats.LastActivityAt,
	).Error
	if err != nil {
		return nil, err
	}

	observability.StatsRecounts.WithLabelValues(targetType).Inc()
	return stats, nil
}
